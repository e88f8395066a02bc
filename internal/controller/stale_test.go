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

package controller

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kubeflowv1 "github.com/kalypsoServing/profiles-automator/api/v1"
	"github.com/kalypsoServing/profiles-automator/internal/k8s"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

var _ = Describe("Stale Profiles", func() {
	var (
		ctx     context.Context
		cluster *fakeCluster
		p       *pmr.PMR
	)

	BeforeEach(func() {
		ctx = context.Background()
		cluster = &fakeCluster{}
		p = pmr.New(pmrProfile("kept"))
	})

	It("should list the Profiles missing from the PMR without mutating", func() {
		c := cluster.build(
			profileObject("kept", "owner", corev1.ResourceQuotaSpec{}),
			profileObject("old-b", "owner", corev1.ResourceQuotaSpec{}),
			profileObject("old-a", "owner", corev1.ResourceQuotaSpec{}),
		)
		r := newReconciler(c)

		stale, err := r.ListStaleProfiles(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(stale).To(HaveLen(2))
		Expect(stale).To(HaveKey("old-a"))
		Expect(stale).To(HaveKey("old-b"))

		names, err := r.StaleProfileNames(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"old-a", "old-b"}))

		Expect(cluster.calls.mutations()).To(BeZero())
	})

	It("should report nothing when every Profile is declared", func() {
		c := cluster.build(profileObject("kept", "owner", corev1.ResourceQuotaSpec{}))

		names, err := newReconciler(c).StaleProfileNames(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(BeEmpty())
	})

	It("should delete stale Profiles and wait for their namespaces", func() {
		cluster.profileController = true
		c := cluster.build(
			profileObject("kept", "owner", corev1.ResourceQuotaSpec{}),
			namespaceObject("kept"),
			profileObject("old", "owner", corev1.ResourceQuotaSpec{}),
			namespaceObject("old"),
		)

		Expect(newReconciler(c).DeleteStaleProfiles(ctx, p)).To(Succeed())

		Expect(apierrors.IsNotFound(c.Get(ctx, client.ObjectKey{Name: "old"}, &kubeflowv1.Profile{}))).To(BeTrue())
		Expect(apierrors.IsNotFound(c.Get(ctx, client.ObjectKey{Name: "old"}, &corev1.Namespace{}))).To(BeTrue())
		Expect(c.Get(ctx, client.ObjectKey{Name: "kept"}, &kubeflowv1.Profile{})).To(Succeed())
		Expect(c.Get(ctx, client.ObjectKey{Name: "kept"}, &corev1.Namespace{})).To(Succeed())
	})

	It("should fail with a convergence error when a namespace is not removed", func() {
		c := cluster.build(
			profileObject("old", "owner", corev1.ResourceQuotaSpec{}),
			namespaceObject("old"),
		)

		err := newReconciler(c).DeleteStaleProfiles(ctx, p)
		Expect(err).To(MatchError(k8s.ErrNotConverged))

		var nce *k8s.NotConvergedError
		Expect(errors.As(err, &nce)).To(BeTrue())
		Expect(nce.Name).To(Equal("old"))
		Expect(apierrors.IsNotFound(c.Get(ctx, client.ObjectKey{Name: "old"}, &kubeflowv1.Profile{}))).To(BeTrue())
	})

	It("should never be triggered by Sync", func() {
		c := cluster.build(
			profileObject("old", "owner", corev1.ResourceQuotaSpec{}),
			namespaceObject("old"),
		)

		Expect(newReconciler(c).Sync(ctx, p)).To(Succeed())
		Expect(c.Get(ctx, client.ObjectKey{Name: "old"}, &kubeflowv1.Profile{})).To(Succeed())
	})

	It("should apply default poll options", func() {
		r := &ProfilesReconciler{}
		Expect(r.namespaceDeletion()).To(Equal(k8s.PollOptions{
			Timeout:  DefaultNamespaceDeletionTimeout,
			Interval: DefaultNamespaceDeletionInterval,
		}))
	})
})
