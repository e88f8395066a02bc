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
	"slices"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	securityv1beta1 "github.com/kalypsoServing/profiles-automator/api/security/v1beta1"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

const (
	// UserIDHeaderKey is the request attribute carrying the authenticated user
	UserIDHeaderKey = "request.headers[kubeflow-userid]"

	// DefaultKFPUIPrincipal is the Istio principal of the Kubeflow Pipelines UI
	DefaultKFPUIPrincipal = "cluster.local/ns/kubeflow/sa/ml-pipeline-ui"
	// DefaultIstioIngressGatewayPrincipal is the Istio principal of the ingress gateway
	DefaultIstioIngressGatewayPrincipal = "cluster.local/ns/istio-system/sa/istio-ingressgateway-service-account"
)

// Principals are the workload identities a contributor AuthorizationPolicy
// admits on the contributor's behalf.
type Principals struct {
	KFPUI          string
	IngressGateway string
}

// DefaultPrincipals returns the principals of a stock Kubeflow install.
func DefaultPrincipals() Principals {
	return Principals{
		KFPUI:          DefaultKFPUIPrincipal,
		IngressGateway: DefaultIstioIngressGatewayPrincipal,
	}
}

// AuthorizationPolicyPrincipals returns the principals of the first source of
// the first rule, or nil when the policy is not shaped that way.
func AuthorizationPolicyPrincipals(ap *securityv1beta1.AuthorizationPolicy) []string {
	if len(ap.Spec.Rules) == 0 || len(ap.Spec.Rules[0].From) == 0 {
		return nil
	}
	return ap.Spec.Rules[0].From[0].Source.Principals
}

// AuthorizationPolicyHeaderUser returns the single user the first condition
// of the first rule admits through the kubeflow-userid header.
func AuthorizationPolicyHeaderUser(ap *securityv1beta1.AuthorizationPolicy) (string, bool) {
	if len(ap.Spec.Rules) == 0 || len(ap.Spec.Rules[0].When) == 0 {
		return "", false
	}
	when := ap.Spec.Rules[0].When[0]
	if when.Key != UserIDHeaderKey || len(when.Values) != 1 {
		return "", false
	}
	return when.Values[0], true
}

// GrantsAccessToContributor reports whether ap admits both principals and a
// user that is a contributor of profile.
func GrantsAccessToContributor(ap *securityv1beta1.AuthorizationPolicy, profile *pmr.Profile, principals Principals) bool {
	have := AuthorizationPolicyPrincipals(ap)
	if !slices.Contains(have, principals.KFPUI) || !slices.Contains(have, principals.IngressGateway) {
		return false
	}
	user, ok := AuthorizationPolicyHeaderUser(ap)
	return ok && profile.HasContributorUser(user)
}

// AuthorizationPolicyForContributor admits requests from the two principals
// in namespace when the kubeflow-userid header names the contributor.
func AuthorizationPolicyForContributor(c pmr.Contributor, namespace string, principals Principals) (*securityv1beta1.AuthorizationPolicy, error) {
	name, err := ObjectName(c)
	if err != nil {
		return nil, err
	}

	return &securityv1beta1.AuthorizationPolicy{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   namespace,
			Annotations: annotationsFor(c),
			Labels: map[string]string{
				ManagedByLabelKey: ManagedByLabelValue,
			},
		},
		Spec: securityv1beta1.AuthorizationPolicySpec{
			Rules: []securityv1beta1.Rule{
				{
					From: []securityv1beta1.RuleFrom{
						{Source: securityv1beta1.Source{Principals: []string{principals.KFPUI, principals.IngressGateway}}},
					},
					When: []securityv1beta1.Condition{
						{Key: UserIDHeaderKey, Values: []string{c.Name}},
					},
				},
			},
		},
	}, nil
}
