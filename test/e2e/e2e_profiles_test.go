//go:build e2e
// +build e2e

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

package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kalypsoServing/profiles-automator/test/utils"
)

const (
	testProfile  = "e2e-data-scientists"
	staleProfile = "e2e-stale"
)

const testPMR = `profiles:
  - name: ` + testProfile + `
    owner: {kind: User, name: admin@example.com}
    resources:
      hard: {cpu: "1"}
    contributors:
      - {name: user@example.com, role: admin}
`

const stalePMR = testPMR + `  - name: ` + staleProfile + `
    owner: {kind: User, name: admin@example.com}
    contributors:
      - {name: user@example.com, role: view}
`

var _ = Describe("Profiles automator", Ordered, func() {
	var pmrPath string

	automator := func(args ...string) (string, error) {
		cmd := exec.Command(binary, append(args, "--pmr-path", pmrPath)...)
		return utils.Run(cmd)
	}

	writePMR := func(content string) {
		ExpectWithOffset(1, os.WriteFile(pmrPath, []byte(content), 0o600)).To(Succeed())
	}

	BeforeAll(func() {
		pmrPath = filepath.Join(GinkgoT().TempDir(), "pmr.yaml")
	})

	AfterAll(func() {
		By("cleaning up test Profiles")
		for _, name := range []string{testProfile, staleProfile} {
			cmd := exec.Command("kubectl", "delete", "profile", name, "--ignore-not-found")
			_, _ = utils.Run(cmd)
		}
	})

	It("should create Profiles and contributor access", func() {
		writePMR(stalePMR)
		_, err := automator("sync")
		Expect(err).NotTo(HaveOccurred())

		By("verifying the Profile quota")
		cmd := exec.Command("kubectl", "get", "profile", testProfile,
			"-o", "jsonpath={.spec.resourceQuotaSpec.hard.cpu}")
		output, err := utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(output).To(Equal("1"))

		By("verifying the contributor RoleBinding and AuthorizationPolicy")
		verifyGrants := func(g Gomega) {
			cmd := exec.Command("kubectl", "get", "rolebinding", "user-example-com-admin", "-n", testProfile,
				"-o", "jsonpath={.roleRef.name}")
			output, err := utils.Run(cmd)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(output).To(Equal("kubeflow-admin"))

			cmd = exec.Command("kubectl", "get", "authorizationpolicy", "user-example-com-admin", "-n", testProfile,
				"-o", "jsonpath={.metadata.annotations.user}")
			output, err = utils.Run(cmd)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(output).To(Equal("user@example.com"))
		}
		Eventually(verifyGrants, 2*time.Minute, 5*time.Second).Should(Succeed())
	})

	It("should revoke access of Profiles removed from the PMR but keep them", func() {
		writePMR(testPMR)
		_, err := automator("sync")
		Expect(err).NotTo(HaveOccurred())

		cmd := exec.Command("kubectl", "get", "profile", staleProfile)
		_, err = utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred(), "stale Profile must not be deleted by sync")

		cmd = exec.Command("kubectl", "get", "rolebindings", "-n", staleProfile,
			"-o", "jsonpath={range .items[?(@.metadata.annotations.role)]}{.metadata.name}{\"\\n\"}{end}")
		output, err := utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(utils.GetNonEmptyLines(output)).NotTo(ContainElement("user-example-com-view"))
	})

	It("should list and delete stale Profiles", func() {
		output, err := automator("list-stale")
		Expect(err).NotTo(HaveOccurred())
		Expect(utils.GetNonEmptyLines(output)).To(ContainElement(staleProfile))

		_, err = automator("delete-stale", "--namespace-deletion-timeout=5m")
		Expect(err).NotTo(HaveOccurred())

		cmd := exec.Command("kubectl", "get", "namespace", staleProfile)
		_, err = utils.Run(cmd)
		Expect(err).To(HaveOccurred(), "stale namespace must be gone")
	})
})
