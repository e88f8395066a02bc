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

// Package kfam implements the annotation protocol the Kubeflow Access
// Management API uses to mark the RoleBindings and AuthorizationPolicies that
// grant a contributor access to a Profile namespace.
package kfam

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

const (
	// AnnotationUser holds the contributor name
	AnnotationUser = "user"
	// AnnotationRole holds the contributor role
	AnnotationRole = "role"

	// OwnerRoleBindingName is created by the Profile controller for the owner
	OwnerRoleBindingName = "namespaceAdmin"
	// OwnerAuthorizationPolicyName is created by the Profile controller for the owner
	OwnerAuthorizationPolicyName = "ns-owner-access-istio"

	// ManagedByLabelKey is the label key for managed-by identification
	ManagedByLabelKey = "app.kubernetes.io/managed-by"
	// ManagedByLabelValue is the label value for managed-by
	ManagedByLabelValue = "profiles-automator"

	clusterRolePrefix = "kubeflow-"
)

// ErrInvalidAnnotations is returned when a resource is read as a contributor
// grant but does not carry valid user/role annotations.
var ErrInvalidAnnotations = errors.New("resource does not have valid KFAM annotations")

// HasAnnotations reports whether obj carries both the user and role
// annotations and the role is admin, edit or view. Anything else is not a
// contributor grant.
func HasAnnotations(obj metav1.Object) bool {
	annotations := obj.GetAnnotations()
	if _, ok := annotations[AnnotationUser]; !ok {
		return false
	}
	role, ok := annotations[AnnotationRole]
	return ok && pmr.ContributorRole(role).IsValid()
}

// IsOwnerResource reports whether obj is one of the owner grants created by
// the Profile controller. Both reserved names are excluded regardless of kind.
func IsOwnerResource(obj metav1.Object) bool {
	name := obj.GetName()
	return name == OwnerRoleBindingName || name == OwnerAuthorizationPolicyName
}

// ContributorUser returns the user annotation of obj.
func ContributorUser(obj metav1.Object) (string, error) {
	if !HasAnnotations(obj) {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidAnnotations, obj.GetNamespace(), obj.GetName())
	}
	return obj.GetAnnotations()[AnnotationUser], nil
}

// ContributorRole returns the role annotation of obj.
func ContributorRole(obj metav1.Object) (pmr.ContributorRole, error) {
	if !HasAnnotations(obj) {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidAnnotations, obj.GetNamespace(), obj.GetName())
	}
	return pmr.ContributorRole(obj.GetAnnotations()[AnnotationRole]), nil
}

// MatchesProfileContributor reports whether obj grants exactly one of the
// (user, role) pairs declared for the Profile. A grant for the right user
// with another role does not match.
func MatchesProfileContributor(obj metav1.Object, profile *pmr.Profile) bool {
	if !HasAnnotations(obj) {
		return false
	}
	annotations := obj.GetAnnotations()
	return profile.HasContributor(annotations[AnnotationUser], pmr.ContributorRole(annotations[AnnotationRole]))
}

func annotationsFor(c pmr.Contributor) map[string]string {
	return map[string]string{
		AnnotationUser: c.Name,
		AnnotationRole: string(c.Role),
	}
}
