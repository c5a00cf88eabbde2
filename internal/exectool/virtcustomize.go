// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package exectool

import (
	"context"
	"fmt"
)

// VirtCustomize wraps virt-customize from libguestfs-tools, used to inject
// packages into a disk image before it is imported.
type VirtCustomize struct {
	Exec Executor
}

// InstallPackages installs the given packages into the image at path.
func (v *VirtCustomize) InstallPackages(ctx context.Context, path string, packages ...string) error {
	args := []string{"-a", path}
	for _, p := range packages {
		args = append(args, "--install", p)
	}
	result, err := RunAndCapture(ctx, v.Exec, "virt-customize", args...)
	if err != nil {
		return fmt.Errorf("virt-customize failed: %s\n%s", err, result.Stderr)
	}
	return nil
}
