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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	securityv1beta1 "github.com/kalypsoServing/profiles-automator/api/security/v1beta1"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

func roleBinding(namespace, name string, annotations map[string]string) *rbacv1.RoleBinding {
	return &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Annotations: annotations},
		RoleRef:    rbacv1.RoleRef{APIGroup: rbacv1.GroupName, Kind: "ClusterRole", Name: "kubeflow-edit"},
	}
}

func authorizationPolicy(namespace, name string, annotations map[string]string) *securityv1beta1.AuthorizationPolicy {
	return &securityv1beta1.AuthorizationPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Annotations: annotations},
	}
}

func names[T any, PT interface {
	*T
	metav1.Object
}](items []T) []string {
	out := []string{}
	for i := range items {
		out = append(out, PT(&items[i]).GetName())
	}
	return out
}

var _ = Describe("Listing contributor resources", func() {
	var (
		ctx context.Context
		c   client.Client
	)

	alice := map[string]string{"user": "alice", "role": "edit"}
	bob := map[string]string{"user": "bob", "role": "view"}

	BeforeEach(func() {
		ctx = context.Background()

		scheme := runtime.NewScheme()
		Expect(clientgoscheme.AddToScheme(scheme)).To(Succeed())
		Expect(securityv1beta1.AddToScheme(scheme)).To(Succeed())

		c = fake.NewClientBuilder().WithScheme(scheme).WithObjects(
			roleBinding("team", "alice-edit", alice),
			roleBinding("team", OwnerRoleBindingName, map[string]string{"user": "owner", "role": "admin"}),
			roleBinding("team", "default-editor", nil),
			roleBinding("team", "bad-role", map[string]string{"user": "eve", "role": "root"}),
			roleBinding("other", "bob-view", bob),
			authorizationPolicy("team", "alice-edit", alice),
			authorizationPolicy("team", OwnerAuthorizationPolicyName, map[string]string{"user": "owner", "role": "admin"}),
			authorizationPolicy("team", "istio-default", nil),
			authorizationPolicy("other", "bob-view", bob),
		).Build()
	})

	It("should list only contributor RoleBindings of a namespace", func() {
		rbs, err := ListContributorRoleBindings(ctx, c, "team")
		Expect(err).NotTo(HaveOccurred())
		Expect(names(rbs)).To(ConsistOf("alice-edit"))
	})

	It("should list contributor RoleBindings of all namespaces", func() {
		rbs, err := ListContributorRoleBindings(ctx, c, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(names(rbs)).To(ConsistOf("alice-edit", "bob-view"))
	})

	It("should list only contributor AuthorizationPolicies", func() {
		aps, err := ListContributorAuthorizationPolicies(ctx, c, "team")
		Expect(err).NotTo(HaveOccurred())
		Expect(names(aps)).To(ConsistOf("alice-edit"))

		aps, err = ListContributorAuthorizationPolicies(ctx, c, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(names(aps)).To(ConsistOf("alice-edit", "bob-view"))
	})

	It("should index roles by user", func() {
		rbs := []rbacv1.RoleBinding{
			*roleBinding("team", "alice-edit", alice),
			*roleBinding("team", "alice-view", map[string]string{"user": "alice", "role": "view"}),
			*roleBinding("team", "bob-view", bob),
			*roleBinding("team", "junk", nil),
		}
		Expect(RolesByUser(rbs)).To(Equal(map[string][]pmr.ContributorRole{
			"alice": {pmr.RoleEdit, pmr.RoleView},
			"bob":   {pmr.RoleView},
		}))
	})
})
