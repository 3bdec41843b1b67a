// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package irsdk

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	const root = "github.com/go-lpc/irsdk"

	for _, tc := range []struct {
		name string
		info *debug.BuildInfo
		vers string
		sum  string
	}{
		{name: "nil"},
		{
			name: "main",
			info: &debug.BuildInfo{Main: debug.Module{Path: root, Version: "v0.3.0", Sum: "h1:main"}},
			vers: "v0.3.0",
			sum:  "h1:main",
		},
		{
			name: "dep",
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/app"},
				Deps: []*debug.Module{
					{Path: "golang.org/x/sync", Version: "v0.1.0"},
					{Path: root, Version: "v0.2.1", Sum: "h1:dep"},
				},
			},
			vers: "v0.2.1",
			sum:  "h1:dep",
		},
		{
			name: "replace-path-version",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{{
					Path: root, Version: "v0.2.1",
					Replace: &debug.Module{Path: "example.com/fork", Version: "v0.2.2", Sum: "h1:fork"},
				}},
			},
			vers: "example.com/fork v0.2.2",
			sum:  "h1:fork",
		},
		{
			name: "replace-version",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{{
					Path: root, Version: "v0.2.1",
					Replace: &debug.Module{Version: "v0.2.3", Sum: "h1:repl"},
				}},
			},
			vers: "v0.2.3",
			sum:  "h1:repl",
		},
		{
			name: "replace-local",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{{
					Path: root, Version: "v0.2.1",
					Replace: &debug.Module{Path: "../irsdk"},
				}},
			},
			vers: "../irsdk",
		},
		{
			name: "replace-empty",
			info: &debug.BuildInfo{
				Deps: []*debug.Module{{
					Path: root, Version: "v0.2.1",
					Replace: &debug.Module{},
				}},
			},
			vers: "v0.2.1*",
		},
		{
			name: "missing",
			info: &debug.BuildInfo{Main: debug.Module{Path: "example.com/app"}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			vers, sum := versionOf(tc.info)
			if vers != tc.vers || sum != tc.sum {
				t.Fatalf("invalid version: got=(%q, %q), want=(%q, %q)", vers, sum, tc.vers, tc.sum)
			}
		})
	}
}
