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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrPMRNotFound is returned when there is no PMR document to read yet.
var ErrPMRNotFound = errors.New("PMR not found")

// Source provides the raw PMR document.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads the PMR from a file kept up to date by a sidecar.
type FileSource struct {
	Path string
}

func (s FileSource) Read(_ context.Context) ([]byte, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPMRNotFound, s.Path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrPMRNotFound, s.Path)
	}
	return os.ReadFile(s.Path)
}

// Load reads and parses the PMR from src.
func Load(ctx context.Context, src Source) (*PMR, error) {
	data, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
