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

package k8s

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// ErrNotConverged is matched by NotConvergedError.
var ErrNotConverged = errors.New("did not converge")

// NotConvergedError is returned when the cluster did not reach the awaited
// state within the poll timeout. Retrying later may succeed.
type NotConvergedError struct {
	Kind    string
	Name    string
	State   string
	Timeout time.Duration
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("%s %q %s: not %s after %s", e.Kind, e.Name, ErrNotConverged, e.State, e.Timeout)
}

func (e *NotConvergedError) Is(target error) bool {
	return target == ErrNotConverged
}

// PollOptions bounds a wait on the cluster.
type PollOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// WaitForNamespace blocks until the namespace exists. Errors other than
// NotFound abort the wait.
func WaitForNamespace(ctx context.Context, c client.Reader, name string, opts PollOptions) error {
	log := logf.FromContext(ctx).WithValues("namespace", name)

	return poll(ctx, opts, "created", name, func(ctx context.Context) (bool, error) {
		err := c.Get(ctx, client.ObjectKey{Name: name}, &corev1.Namespace{})
		if apierrors.IsNotFound(err) {
			log.V(1).Info("Namespace does not exist yet, retrying")
			return false, nil
		}
		return err == nil, err
	})
}

// WaitForNamespaceDeleted blocks until the namespace is gone. Errors other
// than NotFound abort the wait.
func WaitForNamespaceDeleted(ctx context.Context, c client.Reader, name string, opts PollOptions) error {
	log := logf.FromContext(ctx).WithValues("namespace", name)

	return poll(ctx, opts, "deleted", name, func(ctx context.Context) (bool, error) {
		err := c.Get(ctx, client.ObjectKey{Name: name}, &corev1.Namespace{})
		if apierrors.IsNotFound(err) {
			return true, nil
		}
		if err == nil {
			log.V(1).Info("Namespace still exists, retrying")
		}
		return false, err
	})
}

func poll(ctx context.Context, opts PollOptions, state, name string, condition wait.ConditionWithContextFunc) error {
	err := wait.PollUntilContextTimeout(ctx, opts.Interval, opts.Timeout, true, condition)
	if err == nil {
		return nil
	}
	// The caller's context ending is not a convergence failure.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if wait.Interrupted(err) {
		return &NotConvergedError{Kind: "Namespace", Name: name, State: state, Timeout: opts.Timeout}
	}
	return err
}
