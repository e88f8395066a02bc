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
	"maps"
	"slices"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kubeflowv1 "github.com/kalypsoServing/profiles-automator/api/v1"
	"github.com/kalypsoServing/profiles-automator/internal/k8s"
	"github.com/kalypsoServing/profiles-automator/internal/metrics"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

// ListStaleProfiles returns the cluster Profiles the PMR does not declare,
// keyed by name. It does not modify the cluster.
func (r *ProfilesReconciler) ListStaleProfiles(ctx context.Context, p *pmr.PMR) (map[string]kubeflowv1.Profile, error) {
	profiles, err := ListProfiles(ctx, r)
	if err != nil {
		return nil, err
	}

	stale := map[string]kubeflowv1.Profile{}
	for _, profile := range profiles {
		if !p.HasProfile(profile.Name) {
			stale[profile.Name] = profile
		}
	}
	metrics.StaleProfiles.Set(float64(len(stale)))
	return stale, nil
}

// StaleProfileNames returns the sorted names of the stale Profiles.
func (r *ProfilesReconciler) StaleProfileNames(ctx context.Context, p *pmr.PMR) ([]string, error) {
	stale, err := r.ListStaleProfiles(ctx, p)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(stale)), nil
}

// DeleteStaleProfiles deletes every stale Profile and waits for the Profile
// controller to remove its namespace. This destroys the namespace and all
// of its data. A namespace that outlives the wait fails the call with
// k8s.ErrNotConverged.
func (r *ProfilesReconciler) DeleteStaleProfiles(ctx context.Context, p *pmr.PMR) (err error) {
	log := logf.FromContext(ctx)
	start := time.Now()
	defer func() { metrics.ObserveOperation(metrics.OperationDeleteStale, start, err) }()

	stale, err := r.ListStaleProfiles(ctx, p)
	if err != nil {
		return err
	}

	opts := r.namespaceDeletion()
	for _, name := range slices.Sorted(maps.Keys(stale)) {
		profile := stale[name]
		log.Info("Deleting stale Profile", "profile", name)
		if err := r.Delete(ctx, &profile); client.IgnoreNotFound(err) != nil {
			return fmt.Errorf("failed to delete Profile %s: %w", name, err)
		}
		if err := k8s.WaitForNamespaceDeleted(ctx, r, name, opts); err != nil {
			return err
		}
	}

	metrics.StaleProfiles.Set(0)
	log.Info("Deleted stale Profiles", "count", len(stale))
	return nil
}

func (r *ProfilesReconciler) namespaceDeletion() k8s.PollOptions {
	opts := r.NamespaceDeletion
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultNamespaceDeletionTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultNamespaceDeletionInterval
	}
	return opts
}
