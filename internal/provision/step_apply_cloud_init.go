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

// stepApplyCloudInit attaches a cloud-init drive and writes the first-boot
// guest settings. Desktop images have no cloud-init tooling installed, so
// the step is skipped entirely for them.
type stepApplyCloudInit struct{}

type cloudInitConfigurator interface {
	SetAttributes(vmr *proxmox.VmRef, attrs map[string]interface{}) error
}

var _ cloudInitConfigurator = &pve.Client{}

func (s *stepApplyCloudInit) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)
	client := state.Get("pveClient").(cloudInitConfigurator)
	target := state.Get("target").(*Target)
	artifact := state.Get("artifact").(*imagefile.Artifact)
	vmRef := state.Get("vmRef").(*proxmox.VmRef)

	if artifact.DesktopVariant {
		ui.Say("Desktop image, skipping cloud-init configuration")
		return multistep.ActionContinue
	}

	ui.Say("Applying cloud-init configuration")
	attrs := map[string]interface{}{
		"ide2":      fmt.Sprintf("%s:cloudinit", target.Storage),
		"ipconfig0": "ip=dhcp",
	}
	setAttrIfDefined(attrs, "ciuser", target.CloudInit.User)
	setAttrIfDefined(attrs, "cipassword", target.CloudInit.Password)
	setAttrIfDefined(attrs, "nameserver", target.CloudInit.Nameserver())
	setAttrIfDefined(attrs, "searchdomain", target.CloudInit.SearchDomain)

	if err := client.SetAttributes(vmRef, attrs); err != nil {
		err = fmt.Errorf("Error applying cloud-init configuration: %s", err)
		state.Put("error", err)
		ui.Error(err.Error())
		return multistep.ActionHalt
	}

	return multistep.ActionContinue
}

func (s *stepApplyCloudInit) Cleanup(state multistep.StateBag) {}

func setAttrIfDefined(attrs map[string]interface{}, key, value string) {
	if value != "" {
		attrs[key] = value
	}
}
