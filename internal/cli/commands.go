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

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create or update the Profiles of the PMR and their contributor access",
		Long: `Create or update every Profile of the PMR and make the RoleBindings and
AuthorizationPolicies of its namespace match its contributors. Profiles that
are not in the PMR lose all contributor access but are not deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, p, err := o.oneShot(cmd)
			if err != nil {
				return Explain(err)
			}
			return Explain(r.Sync(cmd.Context(), p))
		},
	}
}

func newListStaleCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-stale",
		Short: "Print the Profiles that exist in the cluster but not in the PMR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, p, err := o.oneShot(cmd)
			if err != nil {
				return Explain(err)
			}
			names, err := r.StaleProfileNames(cmd.Context(), p)
			if err != nil {
				return Explain(err)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newDeleteStaleCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-stale",
		Short: "Delete the Profiles that are not in the PMR, with their namespaces",
		Long: `Delete every Profile that exists in the cluster but not in the PMR and wait
for its namespace to be removed. All data in those namespaces is lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, p, err := o.oneShot(cmd)
			if err != nil {
				return Explain(err)
			}
			return Explain(r.DeleteStaleProfiles(cmd.Context(), p))
		},
	}
}
