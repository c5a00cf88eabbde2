// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	getter "github.com/hashicorp/go-getter/v2"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pvetools/pvetemplate/internal/catalog"
	"github.com/pvetools/pvetemplate/internal/exectool"
	"github.com/pvetools/pvetemplate/internal/fetch"
	"github.com/pvetools/pvetemplate/internal/imagefile"
	"github.com/pvetools/pvetemplate/internal/placement"
	"github.com/pvetools/pvetemplate/internal/provision"
)

var importOpts struct {
	image        string
	workDir      string
	storage      string
	templateName string
	vmID         int
	efi          bool
	noCustomize  bool
	ciUser       string
	ciPassword   string
	dns          string
	dns2         string
	searchDomain string
	memoryMB     int
	cores        int
	sockets      int
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Download a cloud image and turn it into a VM template",
	Long: `Download a cloud image from the catalog, normalize it into an
importable qcow2 disk, and provision a VM template on the Proxmox node.

Every prompt can be pre-seeded with a flag for non-interactive use.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), cmd, newUi())
	},
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importOpts.image, "image", "", "catalog entry name, skips the image prompt")
	f.StringVar(&importOpts.workDir, "workdir", "/var/tmp/pvetemplate", "directory for downloads and extraction")
	f.StringVar(&importOpts.storage, "storage", "", "storage backend for the imported disk")
	f.StringVar(&importOpts.templateName, "name", "", "template name")
	f.IntVar(&importOpts.vmID, "vm-id", 0, "VM identifier for the template")
	f.BoolVar(&importOpts.efi, "efi", false, "enable EFI firmware")
	f.BoolVar(&importOpts.noCustomize, "no-customize", false, "skip installing qemu-guest-agent into the image")
	f.StringVar(&importOpts.ciUser, "ci-user", "", "cloud-init user name")
	f.StringVar(&importOpts.ciPassword, "ci-password", "", "cloud-init password")
	f.StringVar(&importOpts.dns, "dns", "", "primary DNS server")
	f.StringVar(&importOpts.dns2, "dns2", "", "secondary DNS server")
	f.StringVar(&importOpts.searchDomain, "searchdomain", "", "DNS search domain")
	f.IntVar(&importOpts.memoryMB, "memory", 2048, "template memory in MiB")
	f.IntVar(&importOpts.cores, "cores", 2, "template CPU cores")
	f.IntVar(&importOpts.sockets, "sockets", 1, "template CPU sockets")
}

func runImport(ctx context.Context, cmd *cobra.Command, ui packersdk.Ui) error {
	if err := validateSizing(importOpts.memoryMB, importOpts.cores, importOpts.sockets); err != nil {
		return err
	}

	entries, err := loadCatalog()
	if err != nil {
		return err
	}
	entry, err := selectImage(ui, entries, importOpts.image)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(importOpts.workDir, 0o755); err != nil {
		return err
	}
	localPath := filepath.Join(importOpts.workDir, entry.FileName)
	if err := ensureDownloaded(ctx, ui, entry.URL, localPath); err != nil {
		return err
	}

	exec := exectool.NewLocal(logrus.StandardLogger())
	apt := &exectool.Apt{Exec: exec}
	if err := ensureLayoutTools(ctx, ui, exec, apt, entry.Layout.Kind); err != nil {
		return err
	}
	customizer := resolveCustomizer(ctx, ui, exec, apt, entry)

	artifact := imagefile.Artifact{
		LocalPath:      localPath,
		RedHatFamily:   entry.RedHatFamily,
		DesktopVariant: entry.DesktopVariant,
	}
	extractDir := filepath.Join(importOpts.workDir, "extract")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return err
	}
	normalizer := &imagefile.Normalizer{
		TarXz:    new(getter.TarXzDecompressor),
		SevenZip: &exectool.SevenZip{Exec: exec},
		QemuImg:  &exectool.QemuImg{Exec: exec},
	}
	if err := normalizer.Normalize(ctx, entry.Layout, &artifact, extractDir); err != nil {
		return err
	}

	client, err := connect()
	if err != nil {
		return err
	}

	storage := importOpts.storage
	if storage == "" {
		storage, err = placement.SelectStorage(ui, client, "local-lvm")
		if err != nil {
			return err
		}
	}

	name, err := promptTemplateName(ui, importOpts.templateName, entry.DefaultTemplateName)
	if err != nil {
		return err
	}

	resolver := &placement.IDResolver{Ui: ui, Client: client}
	vmID := importOpts.vmID
	if vmID == 0 {
		vmID, err = resolver.ResolveInteractive()
		if err != nil {
			return err
		}
	}

	target := provision.Target{
		TemplateID:   vmID,
		TemplateName: name,
		Storage:      storage,
		MemoryMB:     importOpts.memoryMB,
		Cores:        importOpts.cores,
		Sockets:      importOpts.sockets,
	}

	if !entry.DesktopVariant {
		target.CloudInit, err = promptCloudInit(ui)
		if err != nil {
			return err
		}
	}

	target.EnableEFI = importOpts.efi
	if !cmd.Flags().Changed("efi") {
		target.EnableEFI, err = promptYesNo(ui, "Enable EFI firmware? [y/N]", false)
		if err != nil {
			return err
		}
	}

	p := &provision.Provisioner{
		Client:     client,
		Resolver:   resolver,
		Logger:     logrus.StandardLogger(),
		Customizer: customizer,
	}
	id, err := p.Run(ctx, ui, target, artifact)
	if err != nil {
		return err
	}

	ui.Say(fmt.Sprintf("Template %s created with VM ID %d", name, id))
	return nil
}

func validateSizing(memoryMB, cores, sockets int) error {
	if memoryMB < 16 {
		return fmt.Errorf("memory must be at least 16 MiB, got %d", memoryMB)
	}
	if cores < 1 || sockets < 1 {
		return fmt.Errorf("cores and sockets must be at least 1, got %d/%d", cores, sockets)
	}
	return nil
}

// selectImage resolves the catalog entry to import, either from the preset
// name or by prompting with a numbered listing.
func selectImage(ui packersdk.Ui, entries []catalog.ImageDescriptor, preset string) (catalog.ImageDescriptor, error) {
	if preset != "" {
		for _, e := range entries {
			if strings.EqualFold(e.Name, preset) {
				return e, nil
			}
		}
		return catalog.ImageDescriptor{}, fmt.Errorf("image %q is not in the catalog", preset)
	}

	ui.Say("Available images:")
	for i, e := range entries {
		ui.Say(fmt.Sprintf("  [%d] %s", i+1, e.Name))
	}
	for {
		answer, err := ui.Ask("Select image [1]")
		if err != nil {
			return catalog.ImageDescriptor{}, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return entries[0], nil
		}
		index, err := strconv.Atoi(answer)
		if err != nil || index < 1 || index > len(entries) {
			ui.Say(fmt.Sprintf("Selection %q not in range", answer))
			continue
		}
		return entries[index-1], nil
	}
}

// ensureDownloaded fetches url to dst, reusing an existing download when
// the operator confirms it.
func ensureDownloaded(ctx context.Context, ui packersdk.Ui, url, dst string) error {
	if fetch.Exists(dst) {
		reuse, err := promptYesNo(ui, fmt.Sprintf("%s already exists, use it? [Y/n]", filepath.Base(dst)), true)
		if err != nil {
			return err
		}
		if reuse {
			return nil
		}
		if err := os.Remove(dst); err != nil {
			return err
		}
	}
	ui.Say(fmt.Sprintf("Downloading %s", url))
	return fetch.Download(ctx, ui, url, dst)
}

// ensureLayoutTools checks that the host commands the archive layout needs
// are present, offering to install the missing ones. A declined install of
// a required tool aborts the run.
func ensureLayoutTools(ctx context.Context, ui packersdk.Ui, exec exectool.Executor, apt *exectool.Apt, kind catalog.LayoutKind) error {
	switch kind {
	case catalog.LayoutRawImage, catalog.LayoutTarXzRawDisk:
		return exectool.EnsureTool(ctx, ui, exec, apt, "qemu-img", "qemu-utils")
	case catalog.Layout7zQcow2Glob:
		return exectool.EnsureTool(ctx, ui, exec, apt, "7z", "p7zip-full")
	}
	return nil
}

// resolveCustomizer returns the virt-customize wrapper when the tool is
// available, nil otherwise. Guest-agent injection is optional, so a missing
// or declined tool never aborts the run.
func resolveCustomizer(ctx context.Context, ui packersdk.Ui, exec exectool.Executor, apt *exectool.Apt, entry catalog.ImageDescriptor) provision.Customizer {
	if importOpts.noCustomize || entry.DesktopVariant {
		return nil
	}
	err := exectool.EnsureTool(ctx, ui, exec, apt, "virt-customize", "libguestfs-tools")
	if err != nil {
		if !errors.Is(err, exectool.ErrInstallDeclined) {
			ui.Say(fmt.Sprintf("virt-customize unavailable (%s), skipping guest-agent injection", err))
		}
		return nil
	}
	return &exectool.VirtCustomize{Exec: exec}
}

func promptTemplateName(ui packersdk.Ui, preset, defaultName string) (string, error) {
	if preset != "" {
		return preset, nil
	}
	answer, err := ui.Ask(fmt.Sprintf("Template name [%s]", defaultName))
	if err != nil {
		return "", err
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		return answer, nil
	}
	return defaultName, nil
}

func promptCloudInit(ui packersdk.Ui) (provision.CloudInit, error) {
	ci := provision.CloudInit{
		User:         importOpts.ciUser,
		Password:     importOpts.ciPassword,
		DNS1:         importOpts.dns,
		DNS2:         importOpts.dns2,
		SearchDomain: importOpts.searchDomain,
	}

	var err error
	if ci.User == "" {
		if ci.User, err = askWithDefault(ui, "Cloud-init user", "admin"); err != nil {
			return ci, err
		}
	}
	if ci.Password == "" {
		if ci.Password, err = askWithDefault(ui, "Cloud-init password", ""); err != nil {
			return ci, err
		}
	}
	if ci.DNS1 == "" {
		if ci.DNS1, err = askWithDefault(ui, "Primary DNS server", ""); err != nil {
			return ci, err
		}
	}
	if ci.DNS1 != "" && ci.DNS2 == "" {
		if ci.DNS2, err = askWithDefault(ui, "Secondary DNS server", ""); err != nil {
			return ci, err
		}
	}
	if ci.SearchDomain == "" {
		if ci.SearchDomain, err = askWithDefault(ui, "DNS search domain", ""); err != nil {
			return ci, err
		}
	}
	return ci, nil
}

func askWithDefault(ui packersdk.Ui, query, defaultValue string) (string, error) {
	answer, err := ui.Ask(fmt.Sprintf("%s [%s]", query, defaultValue))
	if err != nil {
		return "", err
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		return answer, nil
	}
	return defaultValue, nil
}

// promptYesNo asks a yes/no question; an empty answer takes defaultYes.
// The query should spell the default out, "[y/N]" style.
func promptYesNo(ui packersdk.Ui, query string, defaultYes bool) (bool, error) {
	answer, err := ui.Ask(query)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return defaultYes, nil
	}
	return answer == "y" || answer == "yes", nil
}
