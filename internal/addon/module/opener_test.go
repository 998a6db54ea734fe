// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

type recordingOpener struct {
	paths []string
}

func (r *recordingOpener) Open(path string) (module.Library, error) {
	r.paths = append(r.paths, path)
	return nil, errors.New("recorded")
}

func TestOpenersRouteByExtension(t *testing.T) {
	native := &recordingOpener{}
	process := &recordingOpener{}
	o := &module.Openers{Native: native, Process: process}

	_, _ = o.Open("addons/foo.dll")
	_, _ = o.Open("addons/bar.ADDON")
	_, _ = o.Open("addons/baz.so")

	assert.Equal(t, []string{"addons/foo.dll", "addons/baz.so"}, native.paths)
	assert.Equal(t, []string{"addons/bar.ADDON"}, process.paths)
}

func TestOpenersWithoutNative(t *testing.T) {
	o := &module.Openers{}
	_, err := o.Open("addons/foo.dll")
	errutil.AssertErrorCode(t, err, module.CodeUnsupported)
}
