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

// Package k8s holds generic helpers for working with Kubernetes objects that
// are not tied to Profiles or KFAM.
package k8s

import (
	"strings"
)

// MaxNameLength is the longest DNS label Kubernetes accepts as an object name.
const MaxNameLength = 63

// ToCompliantName lowercases raw, replaces every character outside
// [a-z0-9-] with a hyphen, trims leading and trailing hyphens and truncates
// the result to MaxNameLength. Distinct inputs may map to the same name.
// The result is empty when raw has no alphanumeric characters; callers must
// reject it.
func ToCompliantName(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '-'
	}, strings.ToLower(raw))

	name := strings.Trim(mapped, "-")
	if len(name) > MaxNameLength {
		name = strings.TrimRight(name[:MaxNameLength], "-")
	}
	return name
}
