// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"

	"github.com/pvetools/pvetemplate/internal/imagefile"
	"github.com/pvetools/pvetemplate/internal/pve"
)

// bootSlot is the controller slot the imported disk lands on and boots from.
const bootSlot = "scsi0"

type stepImportDisk struct{}

type diskImporter interface {
	ImportDisk(vmr *proxmox.VmRef, slot, storage, path, format string) error
}

var _ diskImporter = &pve.Client{}

func (s *stepImportDisk) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)
	client := state.Get("pveClient").(diskImporter)
	target := state.Get("target").(*Target)
	artifact := state.Get("artifact").(*imagefile.Artifact)
	vmRef := state.Get("vmRef").(*proxmox.VmRef)

	ui.Say(fmt.Sprintf("Importing disk image to %s", target.Storage))
	err := client.ImportDisk(vmRef, bootSlot, target.Storage, artifact.LocalPath, string(artifact.Format))
	if err != nil {
		err = fmt.Errorf("Error importing disk: %s", err)
		state.Put("error", err)
		ui.Error(err.Error())
		return multistep.ActionHalt
	}

	return multistep.ActionContinue
}

func (s *stepImportDisk) Cleanup(state multistep.StateBag) {}
