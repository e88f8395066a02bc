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

package pmr

import (
	"fmt"
	"slices"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
)

// ResourceQuota mirrors a Kubernetes ResourceQuotaSpec. It is either empty or
// carries Hard; scopes without hard limits are rejected.
type ResourceQuota struct {
	// Hard is nil when absent and non-nil (possibly empty) when present.
	Hard          corev1.ResourceList         `json:"hard,omitempty"`
	ScopeSelector *corev1.ScopeSelector       `json:"scopeSelector,omitempty"`
	Scopes        []corev1.ResourceQuotaScope `json:"scopes,omitempty"`
}

// IsEmpty reports whether q declares nothing. A nil quota is empty.
func (q *ResourceQuota) IsEmpty() bool {
	return q == nil || (q.Hard == nil && q.ScopeSelector == nil && len(q.Scopes) == 0)
}

// Validate checks the quota shape. A nil quota is valid.
func (q *ResourceQuota) Validate() error {
	if q == nil {
		return nil
	}
	if q.Hard == nil && !q.IsEmpty() {
		return fmt.Errorf("resources: hard is required when scopes or scopeSelector are set")
	}
	if q.ScopeSelector == nil {
		return nil
	}
	for i, expr := range q.ScopeSelector.MatchExpressions {
		switch expr.Operator {
		case corev1.ScopeSelectorOpIn, corev1.ScopeSelectorOpNotIn,
			corev1.ScopeSelectorOpExists, corev1.ScopeSelectorOpDoesNotExist:
		default:
			return fmt.Errorf("resources.scopeSelector.matchExpressions[%d]: unsupported operator %q", i, expr.Operator)
		}
		if expr.ScopeName == "" {
			return fmt.Errorf("resources.scopeSelector.matchExpressions[%d]: scopeName is required", i)
		}
	}
	return nil
}

// ToSpec renders q as the ResourceQuotaSpec stored on a Profile. A nil quota
// renders as an empty spec.
func (q *ResourceQuota) ToSpec() corev1.ResourceQuotaSpec {
	if q == nil {
		return corev1.ResourceQuotaSpec{}
	}
	return corev1.ResourceQuotaSpec{
		Hard:          q.Hard.DeepCopy(),
		ScopeSelector: q.ScopeSelector.DeepCopy(),
		Scopes:        slices.Clone(q.Scopes),
	}
}

// ResourceQuotaFromSpec parses the quota of a live Profile back into the PMR
// model. An empty spec yields nil.
func ResourceQuotaFromSpec(spec corev1.ResourceQuotaSpec) *ResourceQuota {
	q := &ResourceQuota{
		Hard:          spec.Hard.DeepCopy(),
		ScopeSelector: spec.ScopeSelector.DeepCopy(),
		Scopes:        slices.Clone(spec.Scopes),
	}
	if q.IsEmpty() {
		return nil
	}
	return q
}

// Equal compares two quotas field by field. Quantities are compared by value
// ("1000m" equals "1") and nil, absent and empty fields are equal.
func (q *ResourceQuota) Equal(other *ResourceQuota) bool {
	return equality.Semantic.DeepEqual(q.ToSpec(), other.ToSpec())
}
