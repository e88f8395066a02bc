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
	"fmt"
	"slices"
	"time"

	"github.com/google/go-cmp/cmp"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kubeflowv1 "github.com/kalypsoServing/profiles-automator/api/v1"
	securityv1beta1 "github.com/kalypsoServing/profiles-automator/api/security/v1beta1"
	"github.com/kalypsoServing/profiles-automator/internal/k8s"
	"github.com/kalypsoServing/profiles-automator/internal/kfam"
	"github.com/kalypsoServing/profiles-automator/internal/metrics"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

const (
	// FieldOwner is the field manager of every object the automator writes
	FieldOwner = "profiles-automator"

	// DefaultNamespaceReadyTimeout bounds the wait for a new Profile namespace
	DefaultNamespaceReadyTimeout = 60 * time.Second
	// DefaultNamespaceReadyInterval is the poll interval of that wait
	DefaultNamespaceReadyInterval = 2 * time.Second
	// DefaultNamespaceDeletionTimeout bounds the wait for a deleted Profile namespace
	DefaultNamespaceDeletionTimeout = 300 * time.Second
	// DefaultNamespaceDeletionInterval is the poll interval of that wait
	DefaultNamespaceDeletionInterval = 5 * time.Second
)

// ProfilesReconciler reconciles the Profiles of a cluster against a PMR
type ProfilesReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// Principals are granted access on behalf of contributors
	Principals kfam.Principals

	// NamespaceReady is used after creating a Profile. A zero timeout skips
	// the wait.
	NamespaceReady k8s.PollOptions

	// NamespaceDeletion is used after deleting a stale Profile. Zero values
	// fall back to the defaults.
	NamespaceDeletion k8s.PollOptions
}

// +kubebuilder:rbac:groups=kubeflow.org,resources=profiles,verbs=get;list;create;patch;delete
// +kubebuilder:rbac:groups=rbac.authorization.k8s.io,resources=rolebindings,verbs=get;list;create;delete
// +kubebuilder:rbac:groups=rbac.authorization.k8s.io,resources=clusterroles,verbs=bind,resourceNames=kubeflow-admin;kubeflow-edit;kubeflow-view
// +kubebuilder:rbac:groups=security.istio.io,resources=authorizationpolicies,verbs=get;list;create;delete
// +kubebuilder:rbac:groups="",resources=namespaces,verbs=get;list

// ListProfiles lists every Profile in the cluster.
func ListProfiles(ctx context.Context, c client.Reader) ([]kubeflowv1.Profile, error) {
	list := &kubeflowv1.ProfileList{}
	if err := c.List(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to list Profiles: %w", err)
	}
	return list.Items, nil
}

// Sync makes the cluster match the PMR. Access is revoked in the namespaces
// of Profiles the PMR no longer declares, but those Profiles are kept. Each
// declared Profile is then created or has its quota updated, and its
// RoleBindings and AuthorizationPolicies are made to match its contributors.
//
// The first error aborts the pass. Running Sync again with the same PMR
// against an unchanged cluster issues no mutating calls.
func (r *ProfilesReconciler) Sync(ctx context.Context, p *pmr.PMR) (err error) {
	log := logf.FromContext(ctx)
	start := time.Now()
	defer func() { metrics.ObserveOperation(metrics.OperationSync, start, err) }()

	metrics.ProfilesDeclared.Set(float64(len(p.Profiles)))

	profiles, err := ListProfiles(ctx, r)
	if err != nil {
		return err
	}
	existing := make(map[string]*kubeflowv1.Profile, len(profiles))
	var stale []string
	for i := range profiles {
		name := profiles[i].Name
		existing[name] = &profiles[i]
		if !p.HasProfile(name) {
			stale = append(stale, name)
		}
	}
	slices.Sort(stale)
	metrics.StaleProfiles.Set(float64(len(stale)))

	for _, name := range stale {
		if err := r.revokeAccess(ctx, name); err != nil {
			log.Error(err, "Failed to revoke access to stale Profile", "profile", name)
			return err
		}
	}

	for _, name := range p.Names() {
		if err := r.reconcileProfile(ctx, p.Profiles[name], existing[name]); err != nil {
			log.Error(err, "Failed to reconcile Profile", "profile", name)
			return err
		}
	}

	log.Info("Successfully synced Profiles", "declared", len(p.Profiles), "stale", len(stale))
	return nil
}

// revokeAccess deletes every contributor grant in the namespace of a Profile
// that is no longer declared. The Profile and its namespace are kept.
func (r *ProfilesReconciler) revokeAccess(ctx context.Context, namespace string) error {
	log := logf.FromContext(ctx).WithValues("profile", namespace)

	rbs, err := kfam.ListContributorRoleBindings(ctx, r, namespace)
	if err != nil {
		return err
	}
	aps, err := kfam.ListContributorAuthorizationPolicies(ctx, r, namespace)
	if err != nil {
		return err
	}
	if len(rbs) == 0 && len(aps) == 0 {
		return nil
	}

	log.Info("Revoking access to stale Profile", "roleBindings", len(rbs), "authorizationPolicies", len(aps))
	if err := k8s.DeleteAll(ctx, r, k8s.Objects(rbs)); err != nil {
		return err
	}
	return k8s.DeleteAll(ctx, r, k8s.Objects(aps))
}

// reconcileProfile converges one declared Profile. existing is nil when the
// cluster has no Profile with that name.
func (r *ProfilesReconciler) reconcileProfile(ctx context.Context, profile *pmr.Profile, existing *kubeflowv1.Profile) error {
	ctx = logf.IntoContext(ctx, logf.FromContext(ctx).WithValues("profile", profile.Name))

	if existing == nil {
		if err := r.createProfile(ctx, profile); err != nil {
			return err
		}
	} else if err := r.reconcileResourceQuota(ctx, profile, existing); err != nil {
		return err
	}

	if err := r.reconcileRoleBindings(ctx, profile); err != nil {
		return err
	}
	return r.reconcileAuthorizationPolicies(ctx, profile)
}

// createProfile creates the Profile and, when configured, waits for the
// Profile controller to create its namespace.
func (r *ProfilesReconciler) createProfile(ctx context.Context, profile *pmr.Profile) error {
	log := logf.FromContext(ctx)

	obj := &kubeflowv1.Profile{
		ObjectMeta: metav1.ObjectMeta{
			Name: profile.Name,
			Labels: map[string]string{
				kfam.ManagedByLabelKey: kfam.ManagedByLabelValue,
			},
		},
		Spec: kubeflowv1.ProfileSpec{
			Owner: rbacv1.Subject{
				Kind: string(profile.Owner.Kind),
				Name: profile.Owner.Name,
			},
			ResourceQuotaSpec: profile.Resources.ToSpec(),
		},
	}

	log.Info("Creating Profile", "owner", profile.Owner.Name, "ownerKind", profile.Owner.Kind)
	if err := r.Create(ctx, obj, client.FieldOwner(FieldOwner)); err != nil {
		return fmt.Errorf("failed to create Profile %s: %w", profile.Name, err)
	}
	if obj.GetNamespace() != "" {
		return fmt.Errorf("created Profile %s is namespaced (%s), expected a cluster scoped resource", profile.Name, obj.GetNamespace())
	}

	if r.NamespaceReady.Timeout <= 0 {
		return nil
	}
	opts := r.NamespaceReady
	if opts.Interval <= 0 {
		opts.Interval = DefaultNamespaceReadyInterval
	}
	return k8s.WaitForNamespace(ctx, r, profile.Name, opts)
}

// reconcileResourceQuota replaces the quota of an existing Profile when it
// differs from the declared one. A Profile without declared resources ends
// up with an empty quota.
func (r *ProfilesReconciler) reconcileResourceQuota(ctx context.Context, profile *pmr.Profile, existing *kubeflowv1.Profile) error {
	log := logf.FromContext(ctx)

	current := pmr.ResourceQuotaFromSpec(existing.Spec.ResourceQuotaSpec)
	if current.Equal(profile.Resources) {
		return nil
	}

	desired := profile.Resources.ToSpec()
	log.Info("Updating Profile resource quota", "diff", cmp.Diff(existing.Spec.ResourceQuotaSpec, desired))

	patch := client.MergeFrom(existing.DeepCopy())
	existing.Spec.ResourceQuotaSpec = desired
	if err := r.Patch(ctx, existing, patch, client.FieldOwner(FieldOwner)); err != nil {
		return fmt.Errorf("failed to update resource quota of Profile %s: %w", profile.Name, err)
	}
	return nil
}

// reconcileRoleBindings deletes the RoleBindings that do not match a declared
// (user, role) pair and creates the missing ones. A role change is a delete
// followed by a create.
func (r *ProfilesReconciler) reconcileRoleBindings(ctx context.Context, profile *pmr.Profile) error {
	log := logf.FromContext(ctx)

	rbs, err := kfam.ListContributorRoleBindings(ctx, r, profile.Name)
	if err != nil {
		return err
	}

	var kept, surplus []rbacv1.RoleBinding
	for _, rb := range rbs {
		if kfam.MatchesProfileContributor(&rb, profile) {
			kept = append(kept, rb)
			continue
		}
		log.Info("RoleBinding does not match a contributor", "roleBinding", rb.Name)
		surplus = append(surplus, rb)
	}
	if err := k8s.DeleteAll(ctx, r, k8s.Objects(surplus)); err != nil {
		return err
	}

	have := kfam.RolesByUser(kept)
	for _, contributor := range profile.Contributors {
		if slices.Contains(have[contributor.Name], contributor.Role) {
			continue
		}
		rb, err := kfam.RoleBindingForContributor(contributor, profile.Name)
		if err != nil {
			return err
		}
		log.Info("Creating RoleBinding", "roleBinding", rb.Name, "contributor", contributor.String())
		if err := r.Create(ctx, rb, client.FieldOwner(FieldOwner)); err != nil {
			return fmt.Errorf("failed to create RoleBinding %s/%s: %w", rb.Namespace, rb.Name, err)
		}
		have[contributor.Name] = append(have[contributor.Name], contributor.Role)
	}
	return nil
}

// reconcileAuthorizationPolicies is reconcileRoleBindings for
// AuthorizationPolicies. A policy that admits outdated principals is
// replaced as well.
func (r *ProfilesReconciler) reconcileAuthorizationPolicies(ctx context.Context, profile *pmr.Profile) error {
	log := logf.FromContext(ctx)

	aps, err := kfam.ListContributorAuthorizationPolicies(ctx, r, profile.Name)
	if err != nil {
		return err
	}

	var kept, surplus []securityv1beta1.AuthorizationPolicy
	for _, ap := range aps {
		if kfam.MatchesProfileContributor(&ap, profile) && kfam.GrantsAccessToContributor(&ap, profile, r.Principals) {
			kept = append(kept, ap)
			continue
		}
		log.Info("AuthorizationPolicy does not match a contributor", "authorizationPolicy", ap.Name)
		surplus = append(surplus, ap)
	}
	if err := k8s.DeleteAll(ctx, r, k8s.Objects(surplus)); err != nil {
		return err
	}

	have := kfam.RolesByUser(kept)
	for _, contributor := range profile.Contributors {
		if slices.Contains(have[contributor.Name], contributor.Role) {
			continue
		}
		ap, err := kfam.AuthorizationPolicyForContributor(contributor, profile.Name, r.Principals)
		if err != nil {
			return err
		}
		log.Info("Creating AuthorizationPolicy", "authorizationPolicy", ap.Name, "contributor", contributor.String())
		if err := r.Create(ctx, ap, client.FieldOwner(FieldOwner)); err != nil {
			return fmt.Errorf("failed to create AuthorizationPolicy %s/%s: %w", ap.Namespace, ap.Name, err)
		}
		have[contributor.Name] = append(have[contributor.Name], contributor.Role)
	}
	return nil
}
