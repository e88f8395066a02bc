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
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

// DefaultSyncPeriod is how often the PMR is synced when nothing else triggers it
const DefaultSyncPeriod = 10 * time.Minute

// PMRSyncer runs Sync on a timer and whenever the PMR file changes. Runs never
// overlap; triggers that arrive during a run are folded into one more run.
type PMRSyncer struct {
	Reconciler *ProfilesReconciler
	Source     pmr.Source

	// Period between timer triggered runs
	Period time.Duration

	// WatchPath is the PMR file to watch. Its directory is watched so that
	// files replaced through a symlink swap are noticed. Empty disables it.
	WatchPath string
}

var _ manager.LeaderElectionRunnable = &PMRSyncer{}

// NeedLeaderElection makes only the leader write to the cluster.
func (s *PMRSyncer) NeedLeaderElection() bool {
	return true
}

// Start blocks until ctx is done.
func (s *PMRSyncer) Start(ctx context.Context) error {
	log := logf.FromContext(ctx).WithName("pmr-syncer")
	ctx = logf.IntoContext(ctx, log)

	triggers := make(chan struct{}, 1)
	trigger := func() {
		select {
		case triggers <- struct{}{}:
		default:
		}
	}

	if s.WatchPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create PMR watcher: %w", err)
		}
		defer watcher.Close()

		dir := filepath.Dir(s.WatchPath)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		go s.watch(ctx, watcher, trigger)
	}

	period := s.Period
	if period <= 0 {
		period = DefaultSyncPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Info("Starting PMR syncer", "period", period, "watch", s.WatchPath)
	trigger()
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping PMR syncer")
			return nil
		case <-ticker.C:
			trigger()
		case <-triggers:
			s.SyncOnce(ctx)
		}
	}
}

func (s *PMRSyncer) watch(ctx context.Context, watcher *fsnotify.Watcher, trigger func()) {
	log := logf.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			log.V(1).Info("PMR directory changed", "event", event.String())
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error(err, "PMR watcher error")
		}
	}
}

// SyncOnce loads the PMR and syncs it. Failures are logged and left for the
// next trigger. A missing PMR is not a failure.
func (s *PMRSyncer) SyncOnce(ctx context.Context) {
	log := logf.FromContext(ctx)

	p, err := pmr.Load(ctx, s.Source)
	if errors.Is(err, pmr.ErrPMRNotFound) {
		log.Info("No PMR to sync yet", "reason", err.Error())
		return
	}
	if err != nil {
		log.Error(err, "Failed to load PMR")
		return
	}

	log.V(1).Info("Loaded PMR", "pmr", p.String())
	if err := s.Reconciler.Sync(ctx, p); err != nil {
		log.Error(err, "Failed to sync PMR")
	}
}
