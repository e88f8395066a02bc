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

package v1beta1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AuthorizationPolicyAction is the action taken when a rule matches
// +kubebuilder:validation:Enum=ALLOW;DENY;AUDIT;CUSTOM
type AuthorizationPolicyAction string

const (
	// ActionAllow allows a request that matches a rule
	ActionAllow AuthorizationPolicyAction = "ALLOW"
	// ActionDeny denies a request that matches a rule
	ActionDeny AuthorizationPolicyAction = "DENY"
)

// AuthorizationPolicySpec defines the access control rules of a workload
type AuthorizationPolicySpec struct {
	// Selector restricts the workloads the policy applies to
	// +optional
	Selector *WorkloadSelector `json:"selector,omitempty"`

	// Action defaults to ALLOW when empty
	// +optional
	Action AuthorizationPolicyAction `json:"action,omitempty"`

	// Rules is the list of rules to match the request
	// +optional
	Rules []Rule `json:"rules,omitempty"`
}

// WorkloadSelector selects workloads by label
type WorkloadSelector struct {
	// +optional
	MatchLabels map[string]string `json:"matchLabels,omitempty"`
}

// Rule matches requests from a list of sources, optionally under conditions
type Rule struct {
	// +optional
	From []RuleFrom `json:"from,omitempty"`

	// +optional
	When []Condition `json:"when,omitempty"`
}

// RuleFrom wraps a single Source
type RuleFrom struct {
	Source Source `json:"source"`
}

// Source identifies the peer identity of a request
type Source struct {
	// Principals is a list of peer identities derived from the peer certificate
	// +optional
	Principals []string `json:"principals,omitempty"`

	// +optional
	Namespaces []string `json:"namespaces,omitempty"`
}

// Condition matches a request attribute against a list of values
type Condition struct {
	Key string `json:"key"`

	// +optional
	Values []string `json:"values,omitempty"`

	// +optional
	NotValues []string `json:"notValues,omitempty"`
}

// +kubebuilder:object:root=true

// AuthorizationPolicy is the Schema for the Istio authorizationpolicies API
type AuthorizationPolicy struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// +optional
	Spec AuthorizationPolicySpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// AuthorizationPolicyList contains a list of AuthorizationPolicy
type AuthorizationPolicyList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []AuthorizationPolicy `json:"items"`
}

func init() {
	SchemeBuilder.Register(&AuthorizationPolicy{}, &AuthorizationPolicyList{})
}
