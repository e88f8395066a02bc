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

// Package monitoring publishes the automator's metrics endpoint to a
// Prometheus Operator through a Service and a ServiceMonitor.
package monitoring

import (
	"context"
	"fmt"
	"maps"

	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	"github.com/kalypsoServing/profiles-automator/internal/kfam"
)

const (
	// DefaultMetricsPort is the port of the manager's metrics server (default: 8080)
	DefaultMetricsPort = int32(8080)

	metricsPortName = "metrics"
)

// Options describe where the metrics endpoint is published.
type Options struct {
	// Namespace of the automator pods, the Service and the ServiceMonitor
	Namespace string
	// Name of the Service and the ServiceMonitor
	Name string
	// PodLabels select the automator pods
	PodLabels map[string]string
	// Port the metrics server listens on
	Port int32
	// Interval is the scrape interval, empty keeps the Prometheus default
	Interval string
}

func (o Options) labels() map[string]string {
	labels := maps.Clone(o.PodLabels)
	if labels == nil {
		labels = map[string]string{}
	}
	labels[kfam.ManagedByLabelKey] = kfam.ManagedByLabelValue
	return labels
}

// EnsureServiceMonitor creates or updates the metrics Service and the
// ServiceMonitor that scrapes it.
func EnsureServiceMonitor(ctx context.Context, c client.Client, opts Options) error {
	log := logf.FromContext(ctx)

	if opts.Port == 0 {
		opts.Port = DefaultMetricsPort
	}
	if err := reconcileService(ctx, c, opts); err != nil {
		return fmt.Errorf("failed to reconcile metrics Service: %w", err)
	}
	if err := reconcileServiceMonitor(ctx, c, opts); err != nil {
		return fmt.Errorf("failed to reconcile ServiceMonitor: %w", err)
	}

	log.Info("Published metrics endpoint", "namespace", opts.Namespace, "name", opts.Name, "port", opts.Port)
	return nil
}

// reconcileService ensures the Service in front of the metrics server exists
func reconcileService(ctx context.Context, c client.Client, opts Options) error {
	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.Name,
			Namespace: opts.Namespace,
		},
	}

	_, err := controllerutil.CreateOrUpdate(ctx, c, service, func() error {
		if service.Labels == nil {
			service.Labels = make(map[string]string)
		}
		maps.Copy(service.Labels, opts.labels())

		// ClusterIP is kept if already set
		service.Spec.Selector = maps.Clone(opts.PodLabels)
		service.Spec.Ports = []corev1.ServicePort{
			{
				Name:       metricsPortName,
				Port:       opts.Port,
				TargetPort: intstr.FromInt32(opts.Port),
				Protocol:   corev1.ProtocolTCP,
			},
		}
		service.Spec.Type = corev1.ServiceTypeClusterIP
		return nil
	})
	return err
}

// reconcileServiceMonitor ensures the ServiceMonitor selecting the metrics Service exists
func reconcileServiceMonitor(ctx context.Context, c client.Client, opts Options) error {
	sm := &monitoringv1.ServiceMonitor{
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.Name,
			Namespace: opts.Namespace,
		},
	}

	_, err := controllerutil.CreateOrUpdate(ctx, c, sm, func() error {
		if sm.Labels == nil {
			sm.Labels = make(map[string]string)
		}
		maps.Copy(sm.Labels, opts.labels())

		sm.Spec.Selector = metav1.LabelSelector{MatchLabels: opts.labels()}
		sm.Spec.NamespaceSelector = monitoringv1.NamespaceSelector{MatchNames: []string{opts.Namespace}}
		sm.Spec.Endpoints = []monitoringv1.Endpoint{
			{
				Port:     metricsPortName,
				Path:     "/metrics",
				Interval: monitoringv1.Duration(opts.Interval),
			},
		}
		return nil
	})
	return err
}

// Runnable publishes the metrics endpoint once the manager starts.
func Runnable(c client.Client, opts Options) manager.Runnable {
	return manager.RunnableFunc(func(ctx context.Context) error {
		return EnsureServiceMonitor(ctx, c, opts)
	})
}
