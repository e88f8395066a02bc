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
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	securityv1beta1 "github.com/kalypsoServing/profiles-automator/api/security/v1beta1"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

func annotated(name string, annotations map[string]string) *rbacv1.RoleBinding {
	return &rbacv1.RoleBinding{ObjectMeta: metav1.ObjectMeta{
		Name:        name,
		Namespace:   "team",
		Annotations: annotations,
	}}
}

var _ = Describe("Annotations", func() {
	DescribeTable("HasAnnotations",
		func(annotations map[string]string, expected bool) {
			Expect(HasAnnotations(annotated("rb", annotations))).To(Equal(expected))
		},
		Entry("valid admin", map[string]string{"user": "alice", "role": "admin"}, true),
		Entry("valid view", map[string]string{"user": "alice", "role": "view"}, true),
		Entry("no annotations", nil, false),
		Entry("missing user", map[string]string{"role": "edit"}, false),
		Entry("missing role", map[string]string{"user": "alice"}, false),
		Entry("upper case role", map[string]string{"user": "alice", "role": "Admin"}, false),
		Entry("unknown role", map[string]string{"user": "alice", "role": "owner"}, false),
	)

	It("should recognise both owner resource names", func() {
		Expect(IsOwnerResource(annotated(OwnerRoleBindingName, nil))).To(BeTrue())
		Expect(IsOwnerResource(annotated(OwnerAuthorizationPolicyName, nil))).To(BeTrue())
		Expect(IsOwnerResource(annotated("alice-edit", nil))).To(BeFalse())
	})

	It("should read user and role from valid annotations", func() {
		rb := annotated("alice-edit", map[string]string{"user": "alice", "role": "edit"})

		user, err := ContributorUser(rb)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(Equal("alice"))

		role, err := ContributorRole(rb)
		Expect(err).NotTo(HaveOccurred())
		Expect(role).To(Equal(pmr.RoleEdit))
	})

	It("should fail to read from invalid annotations", func() {
		rb := annotated("alice", map[string]string{"user": "alice", "role": "EDIT"})

		_, err := ContributorUser(rb)
		Expect(err).To(MatchError(ErrInvalidAnnotations))
		_, err = ContributorRole(rb)
		Expect(err).To(MatchError(ErrInvalidAnnotations))
	})

	Describe("MatchesProfileContributor", func() {
		profile := &pmr.Profile{
			Name:         "team",
			Owner:        pmr.Owner{Name: "owner", Kind: pmr.OwnerKindUser},
			Contributors: []pmr.Contributor{{Name: "alice", Role: pmr.RoleAdmin}, {Name: "bob", Role: pmr.RoleView}},
		}

		It("should match the exact user and role", func() {
			Expect(MatchesProfileContributor(annotated("x", map[string]string{"user": "alice", "role": "admin"}), profile)).To(BeTrue())
		})

		It("should not match a different role for the same user", func() {
			Expect(MatchesProfileContributor(annotated("x", map[string]string{"user": "alice", "role": "edit"}), profile)).To(BeFalse())
		})

		It("should not match an unknown user", func() {
			Expect(MatchesProfileContributor(annotated("x", map[string]string{"user": "carol", "role": "view"}), profile)).To(BeFalse())
		})

		It("should not match without annotations", func() {
			Expect(MatchesProfileContributor(annotated("x", nil), profile)).To(BeFalse())
		})
	})
})

var _ = Describe("RoleBindingForContributor", func() {
	It("should bind the kubeflow ClusterRole to the contributor", func() {
		rb, err := RoleBindingForContributor(pmr.Contributor{Name: "Kimonas@Canonical.COM", Role: pmr.RoleEdit}, "team")
		Expect(err).NotTo(HaveOccurred())

		Expect(rb.Name).To(Equal("kimonas-canonical-com-edit"))
		Expect(rb.Namespace).To(Equal("team"))
		Expect(rb.Annotations).To(Equal(map[string]string{"user": "Kimonas@Canonical.COM", "role": "edit"}))
		Expect(rb.Labels).To(HaveKeyWithValue(ManagedByLabelKey, ManagedByLabelValue))
		Expect(rb.RoleRef).To(Equal(rbacv1.RoleRef{
			APIGroup: "rbac.authorization.k8s.io",
			Kind:     "ClusterRole",
			Name:     "kubeflow-edit",
		}))
		Expect(rb.Subjects).To(ConsistOf(rbacv1.Subject{
			APIGroup: "rbac.authorization.k8s.io",
			Kind:     "User",
			Name:     "Kimonas@Canonical.COM",
		}))
		Expect(HasAnnotations(rb)).To(BeTrue())
	})

	It("should give the roles of a long contributor name the same object name", func() {
		user := strings.Repeat("a", 57) + "@example.com"

		admin, err := ObjectName(pmr.Contributor{Name: user, Role: pmr.RoleAdmin})
		Expect(err).NotTo(HaveOccurred())
		edit, err := ObjectName(pmr.Contributor{Name: user, Role: pmr.RoleEdit})
		Expect(err).NotTo(HaveOccurred())

		Expect(admin).To(HaveLen(63))
		Expect(admin).To(Equal(edit))
	})

	It("should keep the role suffix of a short contributor name", func() {
		admin, err := ObjectName(pmr.Contributor{Name: "alice@example.com", Role: pmr.RoleAdmin})
		Expect(err).NotTo(HaveOccurred())
		edit, err := ObjectName(pmr.Contributor{Name: "alice@example.com", Role: pmr.RoleEdit})
		Expect(err).NotTo(HaveOccurred())

		Expect(admin).To(Equal("alice-example-com-admin"))
		Expect(edit).To(Equal("alice-example-com-edit"))
	})

	It("should reject a contributor without a compliant name", func() {
		_, err := ObjectName(pmr.Contributor{Name: "$%@", Role: ""})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("AuthorizationPolicy", func() {
	principals := DefaultPrincipals()
	profile := &pmr.Profile{
		Name:         "team",
		Owner:        pmr.Owner{Name: "owner", Kind: pmr.OwnerKindUser},
		Contributors: []pmr.Contributor{{Name: "alice", Role: pmr.RoleView}},
	}

	It("should generate a policy that grants access to the contributor", func() {
		ap, err := AuthorizationPolicyForContributor(pmr.Contributor{Name: "alice", Role: pmr.RoleView}, "team", principals)
		Expect(err).NotTo(HaveOccurred())

		Expect(ap.Name).To(Equal("alice-view"))
		Expect(ap.Namespace).To(Equal("team"))
		Expect(ap.Annotations).To(Equal(map[string]string{"user": "alice", "role": "view"}))
		Expect(AuthorizationPolicyPrincipals(ap)).To(Equal([]string{
			"cluster.local/ns/kubeflow/sa/ml-pipeline-ui",
			"cluster.local/ns/istio-system/sa/istio-ingressgateway-service-account",
		}))

		user, ok := AuthorizationPolicyHeaderUser(ap)
		Expect(ok).To(BeTrue())
		Expect(user).To(Equal("alice"))

		Expect(GrantsAccessToContributor(ap, profile, principals)).To(BeTrue())
		Expect(MatchesProfileContributor(ap, profile)).To(BeTrue())
	})

	It("should not grant access with outdated principals", func() {
		ap, err := AuthorizationPolicyForContributor(pmr.Contributor{Name: "alice", Role: pmr.RoleView}, "team",
			Principals{KFPUI: "cluster.local/ns/old/sa/ui", IngressGateway: principals.IngressGateway})
		Expect(err).NotTo(HaveOccurred())

		Expect(GrantsAccessToContributor(ap, profile, principals)).To(BeFalse())
	})

	It("should not grant access to a user that is not a contributor", func() {
		ap, err := AuthorizationPolicyForContributor(pmr.Contributor{Name: "mallory", Role: pmr.RoleView}, "team", principals)
		Expect(err).NotTo(HaveOccurred())

		Expect(GrantsAccessToContributor(ap, profile, principals)).To(BeFalse())
	})

	DescribeTable("should treat unexpected shapes as no match",
		func(spec securityv1beta1.AuthorizationPolicySpec) {
			ap := &securityv1beta1.AuthorizationPolicy{
				ObjectMeta: metav1.ObjectMeta{Name: "alice-view", Namespace: "team"},
				Spec:       spec,
			}
			Expect(GrantsAccessToContributor(ap, profile, principals)).To(BeFalse())
		},
		Entry("no rules", securityv1beta1.AuthorizationPolicySpec{}),
		Entry("no from", securityv1beta1.AuthorizationPolicySpec{Rules: []securityv1beta1.Rule{{
			When: []securityv1beta1.Condition{{Key: UserIDHeaderKey, Values: []string{"alice"}}},
		}}}),
		Entry("no when", securityv1beta1.AuthorizationPolicySpec{Rules: []securityv1beta1.Rule{{
			From: []securityv1beta1.RuleFrom{{Source: securityv1beta1.Source{Principals: []string{principals.KFPUI, principals.IngressGateway}}}},
		}}}),
		Entry("other header", securityv1beta1.AuthorizationPolicySpec{Rules: []securityv1beta1.Rule{{
			From: []securityv1beta1.RuleFrom{{Source: securityv1beta1.Source{Principals: []string{principals.KFPUI, principals.IngressGateway}}}},
			When: []securityv1beta1.Condition{{Key: "request.headers[x-user]", Values: []string{"alice"}}},
		}}}),
		Entry("several users", securityv1beta1.AuthorizationPolicySpec{Rules: []securityv1beta1.Rule{{
			From: []securityv1beta1.RuleFrom{{Source: securityv1beta1.Source{Principals: []string{principals.KFPUI, principals.IngressGateway}}}},
			When: []securityv1beta1.Condition{{Key: UserIDHeaderKey, Values: []string{"alice", "bob"}}},
		}}}),
		Entry("one principal", securityv1beta1.AuthorizationPolicySpec{Rules: []securityv1beta1.Rule{{
			From: []securityv1beta1.RuleFrom{{Source: securityv1beta1.Source{Principals: []string{principals.KFPUI}}}},
			When: []securityv1beta1.Condition{{Key: UserIDHeaderKey, Values: []string{"alice"}}},
		}}}),
	)
})
