// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package exectool

import (
	"context"
	"fmt"
)

// Apt is the package-manager collaborator used to install missing archive
// tools on the Proxmox host.
type Apt struct {
	Exec Executor
}

// IsInstalled reports whether a package is installed according to dpkg.
func (a *Apt) IsInstalled(ctx context.Context, name string) (bool, error) {
	result, err := RunAndCapture(ctx, a.Exec, "dpkg-query", "-W", "-f=${Status}", name)
	if err != nil {
		// dpkg-query exits non-zero for unknown packages.
		if result.ExitCode > 0 {
			return false, nil
		}
		return false, err
	}
	return result.Stdout == "install ok installed", nil
}

// Install installs a package non-interactively.
func (a *Apt) Install(ctx context.Context, name string) error {
	result, err := RunAndCapture(ctx, a.Exec, "apt-get", "install", "-y", name)
	if err != nil {
		return fmt.Errorf("installing %s: %s\n%s", name, err, result.Stderr)
	}
	return nil
}
