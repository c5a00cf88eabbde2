// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package exectool

import (
	"context"
	"fmt"
)

// SevenZip wraps the 7z archive tool.
type SevenZip struct {
	Exec Executor
}

// Extract unpacks an archive into targetDir, overwriting existing files.
func (s *SevenZip) Extract(ctx context.Context, archive, targetDir string) error {
	result, err := RunAndCapture(ctx, s.Exec, "7z", "x", "-y", "-o"+targetDir, archive)
	if err != nil {
		return fmt.Errorf("7z extraction of %s failed: %s\n%s", archive, err, result.Stderr)
	}
	return nil
}
