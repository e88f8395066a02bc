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
	"net"
	"strconv"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/kalypsoServing/profiles-automator/internal/controller"
	"github.com/kalypsoServing/profiles-automator/internal/monitoring"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

func newRunCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync the PMR periodically and whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Explain(o.run(cmd))
		},
	}
	o.BindManagerFlags(cmd.Flags())
	return cmd
}

func (o *rootOptions) run(cmd *cobra.Command) error {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	mgr, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme: o.scheme,
		Metrics: metricsserver.Options{
			BindAddress: o.MetricsBindAddress,
		},
		HealthProbeBindAddress: o.HealthProbeBindAddress,
		LeaderElection:         o.LeaderElect,
		LeaderElectionID:       "profiles-automator.kubeflow.org",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	// Profiles are read straight from the API server, nothing is cached.
	c, err := client.New(cfg, client.Options{Scheme: o.scheme})
	if err != nil {
		return err
	}

	syncer := &controller.PMRSyncer{
		Reconciler: o.reconciler(c),
		Source:     pmr.FileSource{Path: o.PMRPath},
		Period:     o.SyncPeriod,
	}
	if o.WatchPMR {
		syncer.WatchPath = o.PMRPath
	}
	if err := mgr.Add(syncer); err != nil {
		setupLog.Error(err, "unable to add PMR syncer")
		return err
	}

	if o.ServiceMonitor {
		port, err := bindPort(o.MetricsBindAddress)
		if err != nil {
			return err
		}
		if err := mgr.Add(monitoring.Runnable(c, monitoring.Options{
			Namespace: o.ServiceMonitorNamespace,
			Name:      "profiles-automator-metrics",
			PodLabels: map[string]string{"app.kubernetes.io/name": "profiles-automator"},
			Port:      port,
		})); err != nil {
			setupLog.Error(err, "unable to add ServiceMonitor publisher")
			return err
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(cmd.Context()); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}

func bindPort(address string) (int32, error) {
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return 0, fmt.Errorf("service-monitor needs a metrics-bind-address with a port: %w", err)
	}
	p, err := strconv.ParseInt(port, 10, 32)
	if err != nil || p <= 0 {
		return 0, fmt.Errorf("invalid metrics port %q", port)
	}
	return int32(p), nil
}
