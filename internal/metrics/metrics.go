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

// Package metrics exposes the automator's Prometheus metrics on the
// controller-runtime registry served by the manager's metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	namespace = "profiles_automator"

	// OperationSync is the create-or-update pass
	OperationSync = "sync"
	// OperationDeleteStale is the stale Profile deletion
	OperationDeleteStale = "delete_stale"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// OperationsTotal counts finished operations by result.
	OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Number of finished reconciliation operations.",
	}, []string{"operation", "result"})

	// OperationDuration observes how long operations take.
	OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of reconciliation operations.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"operation"})

	// LastSuccessTimestamp is the unix time of the last successful operation.
	LastSuccessTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful reconciliation operation.",
	}, []string{"operation"})

	// MutationsTotal counts mutating cluster calls.
	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cluster_mutations_total",
		Help:      "Number of mutating calls issued to the cluster.",
	}, []string{"kind", "verb", "result"})

	// ProfilesDeclared is the number of Profiles in the last loaded PMR.
	ProfilesDeclared = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pmr_profiles",
		Help:      "Number of Profiles declared in the last loaded PMR.",
	})

	// StaleProfiles is the number of cluster Profiles missing from the PMR.
	StaleProfiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stale_profiles",
		Help:      "Number of cluster Profiles not declared in the PMR.",
	})
)

func init() {
	kmetrics.Registry.MustRegister(
		OperationsTotal,
		OperationDuration,
		LastSuccessTimestamp,
		MutationsTotal,
		ProfilesDeclared,
		StaleProfiles,
	)
}

// ObserveOperation records the outcome of an operation that began at start.
func ObserveOperation(operation string, start time.Time, err error) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		OperationsTotal.WithLabelValues(operation, ResultFailure).Inc()
		return
	}
	OperationsTotal.WithLabelValues(operation, ResultSuccess).Inc()
	LastSuccessTimestamp.WithLabelValues(operation).SetToCurrentTime()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
