// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package exectool

import (
	"context"
	"fmt"
)

// QemuImg wraps the qemu-img disk-image conversion tool.
type QemuImg struct {
	Exec Executor
}

// ConvertToQcow2 converts a raw disk image to qcow2.
func (q *QemuImg) ConvertToQcow2(ctx context.Context, src, dst string) error {
	result, err := RunAndCapture(ctx, q.Exec, "qemu-img", "convert", "-f", "raw", "-O", "qcow2", src, dst)
	if err != nil {
		return fmt.Errorf("qemu-img convert failed: %s\n%s", err, result.Stderr)
	}
	return nil
}
