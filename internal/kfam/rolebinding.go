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
	"fmt"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kalypsoServing/profiles-automator/internal/k8s"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

// ObjectName derives the RoleBinding and AuthorizationPolicy name of a
// contributor. Distinct contributors may map to the same name. Names are cut
// to 63 characters, so a contributor name of 57 characters or more loses the
// role suffix and its grants for different roles collide as well.
func ObjectName(c pmr.Contributor) (string, error) {
	name := k8s.ToCompliantName(fmt.Sprintf("%s-%s", c.Name, c.Role))
	if name == "" {
		return "", fmt.Errorf("contributor %s has no valid object name", c)
	}
	return name, nil
}

// RoleBindingForContributor binds the kubeflow-<role> ClusterRole to the
// contributor in namespace.
func RoleBindingForContributor(c pmr.Contributor, namespace string) (*rbacv1.RoleBinding, error) {
	name, err := ObjectName(c)
	if err != nil {
		return nil, err
	}

	return &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   namespace,
			Annotations: annotationsFor(c),
			Labels: map[string]string{
				ManagedByLabelKey: ManagedByLabelValue,
			},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "ClusterRole",
			Name:     clusterRolePrefix + string(c.Role),
		},
		Subjects: []rbacv1.Subject{
			{
				APIGroup: rbacv1.GroupName,
				Kind:     rbacv1.UserKind,
				Name:     c.Name,
			},
		},
	}, nil
}
