// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package catalog holds the table of cloud images known to pvetemplate.
//
// Each entry carries an explicit ArchiveLayout describing how the downloaded
// file has to be unpacked before it can be imported, so downstream code never
// has to guess from filename substrings.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// LayoutKind enumerates the supported archive layouts.
type LayoutKind string

const (
	// LayoutNone marks a file that is already an importable disk image
	// (qcow2, or a qcow2 shipped with an .img suffix).
	LayoutNone LayoutKind = "none"
	// LayoutRawImage marks a bare raw disk image that has to be converted
	// to qcow2 before import.
	LayoutRawImage LayoutKind = "raw"
	// LayoutTarXzRawDisk marks a tar.xz archive containing a raw disk at a
	// fixed path inside the archive.
	LayoutTarXzRawDisk LayoutKind = "tar-xz-raw"
	// Layout7zQcow2Glob marks a 7z archive containing a qcow2 image found
	// by glob pattern.
	Layout7zQcow2Glob LayoutKind = "7z-qcow2"
)

// ArchiveLayout describes how to get from a downloaded file to a disk image.
type ArchiveLayout struct {
	Kind LayoutKind
	// InnerPath is the path of the raw disk inside a tar.xz archive,
	// relative to the extraction directory. Only set for LayoutTarXzRawDisk.
	InnerPath string
	// Glob locates the qcow2 image in the extraction directory.
	// Only set for Layout7zQcow2Glob.
	Glob string
}

// ImageDescriptor is one row of the image catalog. Immutable after definition.
type ImageDescriptor struct {
	// Name is the display name shown in selection prompts.
	Name string
	// URL is the download source.
	URL string
	// FileName is the local name the download is stored under.
	FileName string
	// Layout tells the normalizer how to unpack the download.
	Layout ArchiveLayout
	// RedHatFamily is true for Rocky/AlmaLinux/Fedora/CentOS/RHEL images,
	// which keep the default display adapter instead of the serial console.
	RedHatFamily bool
	// DesktopVariant is true for desktop images, which skip cloud-init
	// configuration entirely and get a QXL display adapter.
	DesktopVariant bool
	// DefaultTemplateName is used when the operator does not provide one.
	DefaultTemplateName string
}

var builtin = []ImageDescriptor{
	{
		Name:                "AlmaLinux 9",
		URL:                 "https://repo.almalinux.org/almalinux/9/cloud/x86_64/images/AlmaLinux-9-GenericCloud-latest.x86_64.qcow2",
		FileName:            "AlmaLinux-9-GenericCloud-latest.x86_64.qcow2",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		RedHatFamily:        true,
		DefaultTemplateName: "almalinux-9-cloud",
	},
	{
		Name:                "CentOS Stream 9",
		URL:                 "https://cloud.centos.org/centos/9-stream/x86_64/images/CentOS-Stream-GenericCloud-9-latest.x86_64.qcow2",
		FileName:            "CentOS-Stream-GenericCloud-9-latest.x86_64.qcow2",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		RedHatFamily:        true,
		DefaultTemplateName: "centos-stream-9-cloud",
	},
	{
		Name:                "Debian 12 Bookworm",
		URL:                 "https://cloud.debian.org/images/cloud/bookworm/latest/debian-12-genericcloud-amd64.qcow2",
		FileName:            "debian-12-genericcloud-amd64.qcow2",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		DefaultTemplateName: "debian-12-cloud",
	},
	{
		Name:                "Debian 11 Bullseye",
		URL:                 "https://cloud.debian.org/images/cloud/bullseye/latest/debian-11-genericcloud-amd64.qcow2",
		FileName:            "debian-11-genericcloud-amd64.qcow2",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		DefaultTemplateName: "debian-11-cloud",
	},
	{
		Name:                "Fedora 40",
		URL:                 "https://download.fedoraproject.org/pub/fedora/linux/releases/40/Cloud/x86_64/images/Fedora-Cloud-Base-Generic.x86_64-40-1.14.qcow2",
		FileName:            "Fedora-Cloud-Base-Generic.x86_64-40-1.14.qcow2",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		RedHatFamily:        true,
		DefaultTemplateName: "fedora-40-cloud",
	},
	{
		Name:     "Kali Linux (cloud)",
		URL:      "https://kali.download/cloud-images/current/kali-linux-2024.2-cloud-genericcloud-amd64.tar.xz",
		FileName: "kali-linux-2024.2-cloud-genericcloud-amd64.tar.xz",
		Layout: ArchiveLayout{
			Kind:      LayoutTarXzRawDisk,
			InnerPath: "disk.raw",
		},
		DefaultTemplateName: "kali-cloud",
	},
	{
		Name:     "Kali Linux (QEMU desktop)",
		URL:      "https://cdimage.kali.org/current/kali-linux-2024.2-qemu-amd64.7z",
		FileName: "kali-linux-2024.2-qemu-amd64.7z",
		Layout: ArchiveLayout{
			Kind: Layout7zQcow2Glob,
			Glob: "*.qcow2",
		},
		DesktopVariant:      true,
		DefaultTemplateName: "kali-desktop",
	},
	{
		Name:                "Rocky Linux 9",
		URL:                 "https://dl.rockylinux.org/pub/rocky/9/images/x86_64/Rocky-9-GenericCloud-Base.latest.x86_64.qcow2",
		FileName:            "Rocky-9-GenericCloud-Base.latest.x86_64.qcow2",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		RedHatFamily:        true,
		DefaultTemplateName: "rocky-9-cloud",
	},
	{
		Name:                "Ubuntu 22.04 Jammy",
		URL:                 "https://cloud-images.ubuntu.com/jammy/current/jammy-server-cloudimg-amd64.img",
		FileName:            "jammy-server-cloudimg-amd64.img",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		DefaultTemplateName: "ubuntu-2204-cloud",
	},
	{
		Name:                "Ubuntu 24.04 Noble",
		URL:                 "https://cloud-images.ubuntu.com/noble/current/noble-server-cloudimg-amd64.img",
		FileName:            "noble-server-cloudimg-amd64.img",
		Layout:              ArchiveLayout{Kind: LayoutNone},
		DefaultTemplateName: "ubuntu-2404-cloud",
	},
}

// Entries returns the catalog sorted by display name. The returned slice is
// a copy, callers may reorder it freely.
func Entries() []ImageDescriptor {
	out := make([]ImageDescriptor, len(builtin))
	copy(out, builtin)
	sortEntries(out)
	return out
}

// Merge returns the catalog extended with extra entries, sorted by display
// name. An extra entry with the same name as a builtin one replaces it.
func Merge(extra []ImageDescriptor) []ImageDescriptor {
	byName := make(map[string]ImageDescriptor, len(builtin)+len(extra))
	for _, e := range builtin {
		byName[e.Name] = e
	}
	for _, e := range extra {
		byName[e.Name] = e
	}
	out := make([]ImageDescriptor, 0, len(byName))
	for _, e := range byName {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []ImageDescriptor) {
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// Validate checks that a descriptor is internally consistent. Used for
// entries loaded from an overlay file; the builtin table is trusted.
func (d ImageDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("catalog entry has no name")
	}
	if d.URL == "" {
		return fmt.Errorf("catalog entry %q has no url", d.Name)
	}
	if d.FileName == "" {
		return fmt.Errorf("catalog entry %q has no filename", d.Name)
	}
	switch d.Layout.Kind {
	case LayoutNone, LayoutRawImage:
	case LayoutTarXzRawDisk:
		if d.Layout.InnerPath == "" {
			return fmt.Errorf("catalog entry %q: layout %s requires inner_path", d.Name, d.Layout.Kind)
		}
	case Layout7zQcow2Glob:
		if d.Layout.Glob == "" {
			return fmt.Errorf("catalog entry %q: layout %s requires glob", d.Name, d.Layout.Kind)
		}
	default:
		return fmt.Errorf("catalog entry %q: unknown layout %q", d.Name, d.Layout.Kind)
	}
	return nil
}
