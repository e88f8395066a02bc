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

package v1

import (
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// ProfileSpec defines the desired state of Profile
type ProfileSpec struct {
	// Owner is the subject that owns the Profile and its namespace
	// +optional
	Owner rbacv1.Subject `json:"owner,omitempty"`

	// Plugins are platform specific extensions handled by the Profile controller
	// +optional
	Plugins []Plugin `json:"plugins,omitempty"`

	// ResourceQuotaSpec is applied to the Profile namespace
	// +optional
	ResourceQuotaSpec corev1.ResourceQuotaSpec `json:"resourceQuotaSpec,omitempty"`
}

// Plugin carries an opaque, platform specific extension of a Profile
type Plugin struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	Spec *runtime.RawExtension `json:"spec,omitempty"`
}

// ProfileConditionType is the type of a Profile condition
type ProfileConditionType string

const (
	// ProfileSucceed indicates the Profile controller provisioned the namespace
	ProfileSucceed ProfileConditionType = "Successful"
	// ProfileFailed indicates the Profile controller failed to provision the namespace
	ProfileFailed ProfileConditionType = "Failed"
	// ProfileUnknown indicates the Profile controller has not reported yet
	ProfileUnknown ProfileConditionType = "Unknown"
)

// ProfileCondition is reported by the Profile controller
type ProfileCondition struct {
	Type    ProfileConditionType `json:"type,omitempty"`
	Status  string               `json:"status,omitempty"`
	Message string               `json:"message,omitempty"`
}

// ProfileStatus defines the observed state of Profile
type ProfileStatus struct {
	// +optional
	Conditions []ProfileCondition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Cluster
// +kubebuilder:subresource:status

// Profile is a Kubeflow tenant. The Profile controller turns it into a
// namespace of the same name with default owner bindings.
type Profile struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// +optional
	Spec ProfileSpec `json:"spec,omitempty"`

	// +optional
	Status ProfileStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ProfileList contains a list of Profile
type ProfileList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Profile `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Profile{}, &ProfileList{})
}
