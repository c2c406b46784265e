// Copyright ©2019 The Gonum Authors. All rights reserved.
// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sgemm

import (
	"fmt"
	"runtime/debug"
)

const root = "github.com/LynnColeArt/sgemm"

// Version returns the version of the sgemm module and its checksum. The
// returned values are only valid in binaries built with module support.
// When the running binary is the sgemm command itself, the main module is
// reported.
//
// The exact version format returned by Version may change in future.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return buildVersion(b)
}

func buildVersion(b *debug.BuildInfo) (version, sum string) {
	if b.Main.Path == root {
		return moduleVersion(&b.Main)
	}
	for _, m := range b.Deps {
		if m.Path == root {
			return moduleVersion(m)
		}
	}
	return "", ""
}

func moduleVersion(m *debug.Module) (version, sum string) {
	if m.Replace == nil {
		return m.Version, m.Sum
	}
	switch {
	case m.Replace.Version != "" && m.Replace.Path != "":
		return fmt.Sprintf("%s=>%s %s", m.Version, m.Replace.Path, m.Replace.Version), m.Replace.Sum
	case m.Replace.Version != "":
		return fmt.Sprintf("%s=>%s", m.Version, m.Replace.Version), m.Replace.Sum
	case m.Replace.Path != "":
		return fmt.Sprintf("%s=>%s", m.Version, m.Replace.Path), m.Replace.Sum
	default:
		return m.Version + "*", m.Sum + "*"
	}
}
