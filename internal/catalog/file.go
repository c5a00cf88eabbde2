// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// overlayFile is the on-disk shape of a user-supplied catalog overlay:
//
//	[[images]]
//	name = "My Image"
//	url = "https://example.com/image.tar.xz"
//	filename = "image.tar.xz"
//	layout = "tar-xz-raw"
//	inner_path = "disk.raw"
type overlayFile struct {
	Images []overlayEntry `toml:"images"`
}

type overlayEntry struct {
	Name         string `toml:"name"`
	URL          string `toml:"url"`
	FileName     string `toml:"filename"`
	Layout       string `toml:"layout"`
	InnerPath    string `toml:"inner_path"`
	Glob         string `toml:"glob"`
	RedHatFamily bool   `toml:"redhat_family"`
	Desktop      bool   `toml:"desktop"`
	TemplateName string `toml:"template_name"`
}

// LoadOverlay reads additional catalog entries from a TOML file.
func LoadOverlay(path string) ([]ImageDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog overlay: %w", err)
	}
	var file overlayFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog overlay %s: %w", path, err)
	}

	entries := make([]ImageDescriptor, 0, len(file.Images))
	for _, e := range file.Images {
		layout := LayoutNone
		if e.Layout != "" {
			layout = LayoutKind(e.Layout)
		}
		d := ImageDescriptor{
			Name:     e.Name,
			URL:      e.URL,
			FileName: e.FileName,
			Layout: ArchiveLayout{
				Kind:      layout,
				InnerPath: e.InnerPath,
				Glob:      e.Glob,
			},
			RedHatFamily:        e.RedHatFamily,
			DesktopVariant:      e.Desktop,
			DefaultTemplateName: e.TemplateName,
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, d)
	}
	return entries, nil
}
