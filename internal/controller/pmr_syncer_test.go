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
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kubeflowv1 "github.com/kalypsoServing/profiles-automator/api/v1"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

const onePMR = `profiles:
  - name: team-a
    owner: {kind: User, name: admin@example.com}
    contributors:
      - {name: alice@example.com, role: edit}
`

const twoPMR = onePMR + `  - name: team-b
    owner: {kind: ServiceAccount, name: robot}
    contributors: []
`

var _ = Describe("PMRSyncer", func() {
	var (
		dir     string
		path    string
		cluster *fakeCluster
		c       client.Client
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "pmr")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		path = filepath.Join(dir, "pmr.yaml")

		cluster = &fakeCluster{}
		c = cluster.build()
	})

	profileExists := func(name string) func() error {
		return func() error {
			return c.Get(context.Background(), client.ObjectKey{Name: name}, &kubeflowv1.Profile{})
		}
	}

	It("should skip a missing PMR without touching the cluster", func() {
		s := &PMRSyncer{Reconciler: newReconciler(c), Source: pmr.FileSource{Path: path}}

		s.SyncOnce(context.Background())
		Expect(cluster.calls.lists.Load()).To(BeZero())
	})

	It("should not sync an invalid PMR", func() {
		Expect(os.WriteFile(path, []byte("profiles: [{name: x}]"), 0o600)).To(Succeed())
		s := &PMRSyncer{Reconciler: newReconciler(c), Source: pmr.FileSource{Path: path}}

		s.SyncOnce(context.Background())
		Expect(cluster.calls.lists.Load()).To(BeZero())
	})

	It("should sync on start and whenever the PMR changes", func() {
		Expect(os.WriteFile(path, []byte(onePMR), 0o600)).To(Succeed())

		s := &PMRSyncer{
			Reconciler: newReconciler(c),
			Source:     pmr.FileSource{Path: path},
			Period:     time.Hour,
			WatchPath:  path,
		}
		Expect(s.NeedLeaderElection()).To(BeTrue())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			defer GinkgoRecover()
			done <- s.Start(ctx)
		}()
		DeferCleanup(func() {
			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})

		Eventually(profileExists("team-a")).Should(Succeed())

		Expect(os.WriteFile(path, []byte(twoPMR), 0o600)).To(Succeed())
		Eventually(profileExists("team-b"), 5*time.Second).Should(Succeed())
	})

	It("should sync on the period without a watch", func() {
		Expect(os.WriteFile(path, []byte(onePMR), 0o600)).To(Succeed())

		s := &PMRSyncer{
			Reconciler: newReconciler(c),
			Source:     pmr.FileSource{Path: path},
			Period:     50 * time.Millisecond,
		}

		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)
		go func() {
			defer GinkgoRecover()
			_ = s.Start(ctx)
		}()

		Eventually(profileExists("team-a")).Should(Succeed())
		Expect(os.WriteFile(path, []byte(twoPMR), 0o600)).To(Succeed())
		Eventually(profileExists("team-b"), 2*time.Second).Should(Succeed())
	})
})
