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

// Package pmr models the Profiles Management Representation: the declarative
// list of Profiles, their owners, quotas and contributors that the cluster is
// reconciled against. It has no knowledge of the cluster itself.
package pmr

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ContributorRole is the access level a contributor is granted in a Profile
type ContributorRole string

const (
	// RoleAdmin binds the kubeflow-admin ClusterRole
	RoleAdmin ContributorRole = "admin"
	// RoleEdit binds the kubeflow-edit ClusterRole
	RoleEdit ContributorRole = "edit"
	// RoleView binds the kubeflow-view ClusterRole
	RoleView ContributorRole = "view"
)

// IsValid reports whether r is one of admin, edit or view. The comparison is
// case sensitive.
func (r ContributorRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEdit, RoleView:
		return true
	}
	return false
}

// OwnerKind is the RBAC subject kind of a Profile owner
type OwnerKind string

const (
	OwnerKindUser           OwnerKind = "User"
	OwnerKindGroup          OwnerKind = "Group"
	OwnerKindServiceAccount OwnerKind = "ServiceAccount"
)

// IsValid reports whether k is User, Group or ServiceAccount.
func (k OwnerKind) IsValid() bool {
	switch k {
	case OwnerKindUser, OwnerKindGroup, OwnerKindServiceAccount:
		return true
	}
	return false
}

// UserKind classifies a Profile owner as a human user or a service account
type UserKind string

const (
	UserKindUser           UserKind = "user"
	UserKindServiceAccount UserKind = "service-account"
)

// Owner identifies who owns a Profile
type Owner struct {
	Name string    `json:"name"`
	Kind OwnerKind `json:"kind"`
}

// UserKind returns service-account for ServiceAccount owners and user otherwise.
func (o Owner) UserKind() UserKind {
	if o.Kind == OwnerKindServiceAccount {
		return UserKindServiceAccount
	}
	return UserKindUser
}

// Contributor is a (user, role) access grant scoped to one Profile
type Contributor struct {
	Name string          `json:"name"`
	Role ContributorRole `json:"role"`
}

func (c Contributor) String() string {
	return fmt.Sprintf("(%s, %s)", c.Name, c.Role)
}

// Profile is a tenant declared in the PMR. Name becomes the namespace name.
type Profile struct {
	Name         string         `json:"name"`
	Owner        Owner          `json:"owner"`
	Resources    *ResourceQuota `json:"resources,omitempty"`
	Contributors []Contributor  `json:"contributors"`
}

// Validate checks the invariants of a Profile built in code. Profiles parsed
// from a document are schema validated first and then checked here as well.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return &ValidationError{Err: fmt.Errorf("profile name is required")}
	}
	if p.Owner.Name == "" {
		return &ValidationError{Profile: p.Name, Err: fmt.Errorf("owner name is required")}
	}
	if !p.Owner.Kind.IsValid() {
		return &ValidationError{Profile: p.Name, Err: fmt.Errorf("unsupported owner kind %q", p.Owner.Kind)}
	}
	for i, c := range p.Contributors {
		if c.Name == "" {
			return &ValidationError{Profile: p.Name, Err: fmt.Errorf("contributors[%d]: name is required", i)}
		}
		if !c.Role.IsValid() {
			return &ValidationError{Profile: p.Name, Err: fmt.Errorf("contributors[%d]: unsupported role %q", i, c.Role)}
		}
	}
	if err := p.Resources.Validate(); err != nil {
		return &ValidationError{Profile: p.Name, Err: err}
	}
	return nil
}

// HasContributor reports whether the Profile grants role to user.
func (p *Profile) HasContributor(user string, role ContributorRole) bool {
	return slices.Contains(p.ContributorRoles()[user], role)
}

// HasContributorUser reports whether user is a contributor with any role.
func (p *Profile) HasContributorUser(user string) bool {
	return slices.ContainsFunc(p.Contributors, func(c Contributor) bool {
		return c.Name == user
	})
}

// ContributorRoles indexes the contributors by user name.
func (p *Profile) ContributorRoles() map[string][]ContributorRole {
	roles := make(map[string][]ContributorRole, len(p.Contributors))
	for _, c := range p.Contributors {
		roles[c.Name] = append(roles[c.Name], c.Role)
	}
	return roles
}

// PMR is the set of Profiles keyed by name. It lives for one reconciliation.
type PMR struct {
	Profiles map[string]*Profile
}

// New builds a PMR from profiles. A later Profile with the same name
// replaces an earlier one.
func New(profiles ...*Profile) *PMR {
	p := &PMR{Profiles: make(map[string]*Profile, len(profiles))}
	for _, profile := range profiles {
		p.AddProfile(profile)
	}
	return p
}

// HasProfile reports whether a Profile with exactly this name is declared.
func (p *PMR) HasProfile(name string) bool {
	_, ok := p.Profiles[name]
	return ok
}

// AddProfile adds or replaces a Profile.
func (p *PMR) AddProfile(profile *Profile) {
	if p.Profiles == nil {
		p.Profiles = map[string]*Profile{}
	}
	p.Profiles[profile.Name] = profile
}

// RemoveProfile removes a Profile if it is declared.
func (p *PMR) RemoveProfile(name string) {
	delete(p.Profiles, name)
}

// Names returns the declared Profile names in sorted order.
func (p *PMR) Names() []string {
	return slices.Sorted(maps.Keys(p.Profiles))
}

func (p *PMR) String() string {
	var b strings.Builder
	b.WriteString("Profiles:\n")
	for _, name := range p.Names() {
		fmt.Fprintf(&b, "-  %s: ", name)
		for _, c := range p.Profiles[name].Contributors {
			b.WriteString(c.String())
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	return b.String()
}
