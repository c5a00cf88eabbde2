// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pvetools/pvetemplate/internal/catalog"
	"github.com/pvetools/pvetemplate/internal/pve"
)

var (
	version = "dev"
	commit  = "unknown"
)

var rootOpts struct {
	debug       bool
	node        string
	catalogPath string
}

var rootCmd = &cobra.Command{
	Use:   "pvetemplate",
	Short: "Build Proxmox VE templates from upstream cloud images",
	Long: `pvetemplate downloads an upstream cloud image, normalizes it into an
importable disk, and provisions a VM template on a Proxmox VE node:
create the VM shell, import the disk, attach it as the boot volume,
apply cloud-init settings, convert to template.

Connection settings come from the PROXMOX_URL, PROXMOX_USERNAME,
PROXMOX_PASSWORD and PROXMOX_TOKEN environment variables.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootOpts.debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootOpts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootOpts.node, "node", "", "Proxmox node name (default: first node of the cluster)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.catalogPath, "catalog", "", "path to a TOML file with additional catalog entries")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		newUi().Error(fmt.Sprintf("Error: %s", err))
		os.Exit(1)
	}
}

// loadCatalog returns the built-in image table, extended by the overlay
// file when one was given.
func loadCatalog() ([]catalog.ImageDescriptor, error) {
	if rootOpts.catalogPath == "" {
		return catalog.Entries(), nil
	}
	extra, err := catalog.LoadOverlay(rootOpts.catalogPath)
	if err != nil {
		return nil, err
	}
	return catalog.Merge(extra), nil
}

func connect() (*pve.Client, error) {
	config := pve.Config{Node: rootOpts.node}
	config.ApplyEnvDefaults()
	return pve.Connect(config, logrus.StandardLogger())
}
