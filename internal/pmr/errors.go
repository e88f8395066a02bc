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
	"errors"
	"fmt"
)

// ErrInvalidPMR is matched by every validation failure.
var ErrInvalidPMR = errors.New("invalid PMR")

// ValidationError reports a malformed PMR document or Profile. It is returned
// before any cluster call is made.
type ValidationError struct {
	// Profile is empty when the failure is not tied to a single Profile.
	Profile string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Profile == "" {
		return fmt.Sprintf("invalid PMR: %v", e.Err)
	}
	return fmt.Sprintf("invalid Profile %q in PMR: %v", e.Profile, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidPMR, e.Err}
}
