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

package metrics

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

// Client counts every Create, Patch and Delete it forwards.
type Client struct {
	client.Client
}

// NewClient wraps c so that its mutating calls are counted in MutationsTotal.
func NewClient(c client.Client) *Client {
	return &Client{Client: c}
}

func (c *Client) Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error {
	err := c.Client.Create(ctx, obj, opts...)
	c.count(obj, "create", err)
	return err
}

func (c *Client) Patch(ctx context.Context, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
	err := c.Client.Patch(ctx, obj, patch, opts...)
	c.count(obj, "patch", err)
	return err
}

func (c *Client) Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error {
	err := c.Client.Delete(ctx, obj, opts...)
	// Deleting an object that is already gone is not a failure.
	c.count(obj, "delete", client.IgnoreNotFound(err))
	return err
}

func (c *Client) count(obj client.Object, verb string, err error) {
	kind := "Unknown"
	if gvk, gvkErr := apiutil.GVKForObject(obj, c.Scheme()); gvkErr == nil {
		kind = gvk.Kind
	}
	MutationsTotal.WithLabelValues(kind, verb, result(err)).Inc()
}
