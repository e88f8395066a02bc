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

// Package config holds the options of the automator. Every option is a
// command line flag whose default can be set through a PROFILES_AUTOMATOR_*
// environment variable, and a .env file is read for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/kalypsoServing/profiles-automator/internal/k8s"
	"github.com/kalypsoServing/profiles-automator/internal/kfam"
)

// EnvPrefix prefixes the environment variables read by NewOptions
const EnvPrefix = "PROFILES_AUTOMATOR_"

// Options configure the automator commands
type Options struct {
	PMRPath    string
	SyncPeriod time.Duration
	WatchPMR   bool

	KFPUIPrincipal               string
	IstioIngressGatewayPrincipal string

	NamespaceReadyTimeout    time.Duration
	NamespaceDeletionTimeout time.Duration
	NamespacePollInterval    time.Duration

	MetricsBindAddress     string
	HealthProbeBindAddress string
	LeaderElect            bool

	ServiceMonitor          bool
	ServiceMonitorNamespace string
}

// LoadEnv loads path into the environment if it exists. Variables that are
// already set win.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err == nil {
		return godotenv.Load(path)
	}
	return nil
}

// NewOptions returns the defaults, overridden by the environment.
func NewOptions() *Options {
	return &Options{
		PMRPath:                      getEnv("PMR_PATH", "/pmr/pmr.yaml"),
		SyncPeriod:                   getEnvDuration("SYNC_PERIOD", 10*time.Minute),
		WatchPMR:                     getEnvBool("WATCH_PMR", true),
		KFPUIPrincipal:               getEnv("KFP_UI_PRINCIPAL", kfam.DefaultKFPUIPrincipal),
		IstioIngressGatewayPrincipal: getEnv("ISTIO_INGRESSGATEWAY_PRINCIPAL", kfam.DefaultIstioIngressGatewayPrincipal),
		NamespaceReadyTimeout:        getEnvDuration("NAMESPACE_READY_TIMEOUT", 60*time.Second),
		NamespaceDeletionTimeout:     getEnvDuration("NAMESPACE_DELETION_TIMEOUT", 300*time.Second),
		NamespacePollInterval:        getEnvDuration("NAMESPACE_POLL_INTERVAL", 5*time.Second),
		MetricsBindAddress:           getEnv("METRICS_BIND_ADDRESS", ":8080"),
		HealthProbeBindAddress:       getEnv("HEALTH_PROBE_BIND_ADDRESS", ":8081"),
		LeaderElect:                  getEnvBool("LEADER_ELECT", false),
		ServiceMonitor:               getEnvBool("SERVICE_MONITOR", false),
		ServiceMonitorNamespace:      getEnv("SERVICE_MONITOR_NAMESPACE", "kubeflow"),
	}
}

// BindFlags binds the options every command needs.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.PMRPath, "pmr-path", o.PMRPath, "Path of the PMR YAML document.")
	fs.StringVar(&o.KFPUIPrincipal, "kfp-ui-principal", o.KFPUIPrincipal,
		"Istio principal of the Kubeflow Pipelines UI granted access on behalf of contributors.")
	fs.StringVar(&o.IstioIngressGatewayPrincipal, "istio-ingressgateway-principal", o.IstioIngressGatewayPrincipal,
		"Istio principal of the ingress gateway granted access on behalf of contributors.")
	fs.DurationVar(&o.NamespaceReadyTimeout, "namespace-ready-timeout", o.NamespaceReadyTimeout,
		"How long to wait for the namespace of a new Profile. 0 disables the wait.")
	fs.DurationVar(&o.NamespaceDeletionTimeout, "namespace-deletion-timeout", o.NamespaceDeletionTimeout,
		"How long to wait for the namespace of a deleted Profile to disappear.")
	fs.DurationVar(&o.NamespacePollInterval, "namespace-poll-interval", o.NamespacePollInterval,
		"How often to check a namespace while waiting for it.")
}

// BindManagerFlags binds the options of the long running manager.
func (o *Options) BindManagerFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&o.SyncPeriod, "sync-period", o.SyncPeriod, "How often the PMR is synced.")
	fs.BoolVar(&o.WatchPMR, "watch-pmr", o.WatchPMR, "Sync as soon as the PMR file changes.")
	fs.StringVar(&o.MetricsBindAddress, "metrics-bind-address", o.MetricsBindAddress,
		"The address the metrics endpoint binds to. Use 0 to disable the metrics service.")
	fs.StringVar(&o.HealthProbeBindAddress, "health-probe-bind-address", o.HealthProbeBindAddress,
		"The address the probe endpoint binds to.")
	fs.BoolVar(&o.LeaderElect, "leader-elect", o.LeaderElect,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	fs.BoolVar(&o.ServiceMonitor, "service-monitor", o.ServiceMonitor,
		"Publish the metrics endpoint through a Prometheus Operator ServiceMonitor.")
	fs.StringVar(&o.ServiceMonitorNamespace, "service-monitor-namespace", o.ServiceMonitorNamespace,
		"Namespace of the automator pods and of the ServiceMonitor.")
}

// Validate rejects options no command can run with.
func (o *Options) Validate() error {
	var errs []error
	if o.PMRPath == "" {
		errs = append(errs, errors.New("pmr-path is required"))
	}
	if o.KFPUIPrincipal == "" || o.IstioIngressGatewayPrincipal == "" {
		errs = append(errs, errors.New("kfp-ui-principal and istio-ingressgateway-principal are required"))
	}
	if o.SyncPeriod <= 0 {
		errs = append(errs, fmt.Errorf("sync-period must be positive, got %s", o.SyncPeriod))
	}
	if o.NamespaceReadyTimeout < 0 {
		errs = append(errs, fmt.Errorf("namespace-ready-timeout must not be negative, got %s", o.NamespaceReadyTimeout))
	}
	if o.NamespaceDeletionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("namespace-deletion-timeout must be positive, got %s", o.NamespaceDeletionTimeout))
	}
	if o.NamespacePollInterval <= 0 {
		errs = append(errs, fmt.Errorf("namespace-poll-interval must be positive, got %s", o.NamespacePollInterval))
	}
	if o.ServiceMonitor && o.ServiceMonitorNamespace == "" {
		errs = append(errs, errors.New("service-monitor-namespace is required with service-monitor"))
	}
	return errors.Join(errs...)
}

// Principals returns the principals granted access on behalf of contributors.
func (o *Options) Principals() kfam.Principals {
	return kfam.Principals{
		KFPUI:          o.KFPUIPrincipal,
		IngressGateway: o.IstioIngressGatewayPrincipal,
	}
}

// NamespaceReady returns the wait used after creating a Profile.
func (o *Options) NamespaceReady() k8s.PollOptions {
	return k8s.PollOptions{Timeout: o.NamespaceReadyTimeout, Interval: o.NamespacePollInterval}
}

// NamespaceDeletion returns the wait used after deleting a Profile.
func (o *Options) NamespaceDeletion() k8s.PollOptions {
	return k8s.PollOptions{Timeout: o.NamespaceDeletionTimeout, Interval: o.NamespacePollInterval}
}

func getEnv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
