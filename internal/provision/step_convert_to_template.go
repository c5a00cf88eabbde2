// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"

	"github.com/pvetools/pvetemplate/internal/pve"
)

// stepConvertToTemplate takes the fully configured VM and converts it into
// a template. This is the terminal transition of the pipeline.
type stepConvertToTemplate struct{}

type templateConverter interface {
	ConvertToTemplate(vmr *proxmox.VmRef) error
}

var _ templateConverter = &pve.Client{}

func (s *stepConvertToTemplate) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)
	client := state.Get("pveClient").(templateConverter)
	vmRef := state.Get("vmRef").(*proxmox.VmRef)

	ui.Say("Converting VM to template")
	if err := client.ConvertToTemplate(vmRef); err != nil {
		err = fmt.Errorf("Error converting VM to template: %s", err)
		state.Put("error", err)
		ui.Error(err.Error())
		return multistep.ActionHalt
	}

	state.Put("success", true)
	return multistep.ActionContinue
}

func (s *stepConvertToTemplate) Cleanup(state multistep.StateBag) {}
