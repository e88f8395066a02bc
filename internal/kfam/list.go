/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kfam

import (
	"context"
	"fmt"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	securityv1beta1 "github.com/kalypsoServing/profiles-automator/api/security/v1beta1"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

// ListContributorRoleBindings lists the contributor RoleBindings in namespace,
// or in all namespaces when namespace is empty. Owner bindings and bindings
// without valid annotations are left out.
func ListContributorRoleBindings(ctx context.Context, c client.Reader, namespace string) ([]rbacv1.RoleBinding, error) {
	list := &rbacv1.RoleBindingList{}
	if err := c.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list RoleBindings: %w", err)
	}
	return contributorItems(list.Items), nil
}

// ListContributorAuthorizationPolicies is ListContributorRoleBindings for
// AuthorizationPolicies.
func ListContributorAuthorizationPolicies(ctx context.Context, c client.Reader, namespace string) ([]securityv1beta1.AuthorizationPolicy, error) {
	list := &securityv1beta1.AuthorizationPolicyList{}
	if err := c.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list AuthorizationPolicies: %w", err)
	}
	return contributorItems(list.Items), nil
}

func contributorItems[T any, PT interface {
	*T
	metav1.Object
}](items []T) []T {
	out := make([]T, 0, len(items))
	for i := range items {
		obj := PT(&items[i])
		if HasAnnotations(obj) && !IsOwnerResource(obj) {
			out = append(out, items[i])
		}
	}
	return out
}

// RolesByUser indexes contributor grants by user. Items without valid
// annotations are skipped.
func RolesByUser[T any, PT interface {
	*T
	metav1.Object
}](items []T) map[string][]pmr.ContributorRole {
	roles := make(map[string][]pmr.ContributorRole, len(items))
	for i := range items {
		obj := PT(&items[i])
		if !HasAnnotations(obj) {
			continue
		}
		annotations := obj.GetAnnotations()
		user := annotations[AnnotationUser]
		roles[user] = append(roles[user], pmr.ContributorRole(annotations[AnnotationRole]))
	}
	return roles
}
