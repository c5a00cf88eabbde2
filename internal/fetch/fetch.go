// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads catalog images to the local disk.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter/v2"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
)

// Download fetches url into the file at dst, reporting progress through the
// ui. The packer Ui doubles as go-getter's progress tracker.
func Download(ctx context.Context, ui packersdk.Ui, url, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	client := &getter.Client{
		Getters: []getter.Getter{new(getter.HttpGetter)},
	}
	req := &getter.Request{
		Src:              url,
		Dst:              dst,
		GetMode:          getter.ModeFile,
		ProgressListener: ui,
	}

	if _, err := client.Get(ctx, req); err != nil {
		return fmt.Errorf("downloading %s: %s", url, err)
	}
	return nil
}

// Exists reports whether dst already holds a non-empty download, so the
// operator can be offered a re-use instead of a second multi-gigabyte fetch.
func Exists(dst string) bool {
	info, err := os.Stat(dst)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
