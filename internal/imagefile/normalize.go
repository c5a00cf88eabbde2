// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package imagefile turns a downloaded file into a disk image the Proxmox
// import command can consume, with a known format tag.
package imagefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pvetools/pvetemplate/internal/catalog"
)

// Format is the disk format tag attached to a normalized artifact.
type Format string

const (
	FormatRaw   Format = "raw"
	FormatQcow2 Format = "qcow2"
)

// Artifact is the downloaded file as it moves through normalization.
// LocalPath and Format are rewritten as the file is unpacked and converted;
// the remaining fields are fixed at download time.
type Artifact struct {
	LocalPath      string
	Format         Format
	RedHatFamily   bool
	DesktopVariant bool
}

// Decompressor unpacks a tar.xz archive into a directory.
// Satisfied by go-getter's TarXzDecompressor.
type Decompressor interface {
	Decompress(dst, src string, dir bool, umask os.FileMode) error
}

// Extractor unpacks a 7z archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archive, targetDir string) error
}

// Converter converts a raw disk image to qcow2.
type Converter interface {
	ConvertToQcow2(ctx context.Context, src, dst string) error
}

// Normalizer dispatches on a catalog entry's archive layout.
type Normalizer struct {
	TarXz    Decompressor
	SevenZip Extractor
	QemuImg  Converter
}

// Normalize rewrites art.LocalPath and art.Format so that the path points at
// an importable disk image. Extraction happens under targetDir. Raw disks
// are always converted to qcow2, so the resulting format is qcow2 for every
// layout this tool ships.
func (n *Normalizer) Normalize(ctx context.Context, layout catalog.ArchiveLayout, art *Artifact, targetDir string) error {
	switch layout.Kind {
	case catalog.LayoutNone:
		art.Format = FormatQcow2
		return nil

	case catalog.LayoutRawImage:
		return n.convert(ctx, art, qcow2Sibling(art.LocalPath))

	case catalog.LayoutTarXzRawDisk:
		if err := n.TarXz.Decompress(targetDir, art.LocalPath, true, 0o022); err != nil {
			return fmt.Errorf("extracting %s: %s", art.LocalPath, err)
		}
		rawPath := filepath.Join(targetDir, layout.InnerPath)
		if _, err := os.Stat(rawPath); err != nil {
			return unrecognizedArtifact(targetDir, fmt.Sprintf("expected raw disk at %s", layout.InnerPath))
		}
		art.LocalPath = rawPath
		art.Format = FormatRaw
		return n.convert(ctx, art, qcow2Sibling(rawPath))

	case catalog.Layout7zQcow2Glob:
		if err := n.SevenZip.Extract(ctx, art.LocalPath, targetDir); err != nil {
			return err
		}
		matches, err := filepath.Glob(filepath.Join(targetDir, layout.Glob))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return unrecognizedArtifact(targetDir, fmt.Sprintf("no file matching %s", layout.Glob))
		}
		sort.Strings(matches)
		art.LocalPath = matches[0]
		art.Format = FormatQcow2
		return nil
	}

	return fmt.Errorf("unsupported archive layout %q", layout.Kind)
}

func (n *Normalizer) convert(ctx context.Context, art *Artifact, dst string) error {
	if err := n.QemuImg.ConvertToQcow2(ctx, art.LocalPath, dst); err != nil {
		return err
	}
	art.LocalPath = dst
	art.Format = FormatQcow2
	return nil
}

func qcow2Sibling(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".qcow2"
}

// unrecognizedArtifact builds the fatal diagnostic for an extraction that
// produced nothing usable, including a listing of the extraction directory
// so the operator can see what actually came out of the archive.
func unrecognizedArtifact(dir, reason string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("unrecognized archive contents: %s (could not list %s: %s)", reason, dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return fmt.Errorf("unrecognized archive contents: %s; extraction directory %s contains: %s",
		reason, dir, strings.Join(names, ", "))
}
