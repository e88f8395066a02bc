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

// Package cli wires the automator's commands. The long running run command
// hosts the periodic sync in a controller manager; sync, list-stale and
// delete-stale are one-shot operator actions.
package cli

import (
	"errors"
	goflag "flag"
	"fmt"

	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	"github.com/spf13/cobra"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	securityv1beta1 "github.com/kalypsoServing/profiles-automator/api/security/v1beta1"
	kubeflowv1 "github.com/kalypsoServing/profiles-automator/api/v1"
	"github.com/kalypsoServing/profiles-automator/internal/config"
	"github.com/kalypsoServing/profiles-automator/internal/controller"
	"github.com/kalypsoServing/profiles-automator/internal/k8s"
	"github.com/kalypsoServing/profiles-automator/internal/metrics"
	"github.com/kalypsoServing/profiles-automator/internal/pmr"
)

var setupLog = ctrl.Log.WithName("setup")

// NewScheme registers every kind the automator reads or writes.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(kubeflowv1.AddToScheme(scheme))
	utilruntime.Must(securityv1beta1.AddToScheme(scheme))
	utilruntime.Must(monitoringv1.AddToScheme(scheme))
	return scheme
}

// ClientFunc returns the client the one-shot commands talk to the cluster with.
type ClientFunc func(scheme *runtime.Scheme) (client.Client, error)

// DefaultClient builds an uncached client from the kubeconfig.
func DefaultClient(scheme *runtime.Scheme) (client.Client, error) {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return client.New(cfg, client.Options{Scheme: scheme})
}

type rootOptions struct {
	*config.Options
	zap       zap.Options
	scheme    *runtime.Scheme
	newClient ClientFunc
}

// NewRootCommand returns the profiles-automator command tree.
func NewRootCommand(newClient ClientFunc) *cobra.Command {
	o := &rootOptions{
		Options:   config.NewOptions(),
		zap:       zap.Options{Development: true},
		scheme:    NewScheme(),
		newClient: newClient,
	}

	cmd := &cobra.Command{
		Use:           "profiles-automator",
		Short:         "Reconcile Kubeflow Profiles and their contributors against a PMR",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&o.zap), zap.WriteTo(cmd.ErrOrStderr())))
			return o.Validate()
		},
	}

	o.BindFlags(cmd.PersistentFlags())
	zapFlags := goflag.NewFlagSet("zap", goflag.ContinueOnError)
	o.zap.BindFlags(zapFlags)
	cmd.PersistentFlags().AddGoFlagSet(zapFlags)
	// --kubeconfig is registered by controller-runtime on the global flag set
	cmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)

	cmd.AddCommand(
		newRunCommand(o),
		newSyncCommand(o),
		newListStaleCommand(o),
		newDeleteStaleCommand(o),
	)
	return cmd
}

func (o *rootOptions) reconciler(c client.Client) *controller.ProfilesReconciler {
	return &controller.ProfilesReconciler{
		Client:            metrics.NewClient(c),
		Scheme:            o.scheme,
		Principals:        o.Principals(),
		NamespaceReady:    o.NamespaceReady(),
		NamespaceDeletion: o.NamespaceDeletion(),
	}
}

// oneShot loads the PMR and builds a reconciler for a one-shot command.
func (o *rootOptions) oneShot(cmd *cobra.Command) (*controller.ProfilesReconciler, *pmr.PMR, error) {
	p, err := pmr.Load(cmd.Context(), pmr.FileSource{Path: o.PMRPath})
	if err != nil {
		return nil, nil, err
	}
	c, err := o.newClient(o.scheme)
	if err != nil {
		return nil, nil, err
	}
	return o.reconciler(c), p, nil
}

// Explain prefixes err with what the operator can do about it. The original
// error stays in the chain.
func Explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pmr.ErrPMRNotFound):
		return fmt.Errorf("no PMR to reconcile, check --pmr-path: %w", err)
	case errors.Is(err, pmr.ErrInvalidPMR):
		return fmt.Errorf("invalid PMR, fix the document and retry: %w", err)
	case apierrors.IsForbidden(err):
		return fmt.Errorf("the automator needs elevated permissions: %w", err)
	case errors.Is(err, k8s.ErrNotConverged):
		return fmt.Errorf("the cluster did not converge in time, retry later: %w", err)
	}
	return err
}
