// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/hashicorp/packer-plugin-sdk/retry"

	"github.com/pvetools/pvetemplate/internal/pve"
)

// stepAttachDisk waits for the imported volume to surface as a regular disk
// on the boot slot, then wires the boot order to it. Import is asynchronous
// on the node, so the step polls the VM config until the slot stops looking
// like an in-flight import.
type stepAttachDisk struct {
	// Timeout bounds the poll and Interval spaces the checks. Zero means
	// the default.
	Timeout  time.Duration
	Interval time.Duration
}

type diskAttacher interface {
	VolumeAttached(vmr *proxmox.VmRef, slot string) (bool, error)
	SetAttributes(vmr *proxmox.VmRef, attrs map[string]interface{}) error
}

var _ diskAttacher = &pve.Client{}

const (
	defaultAttachTimeout  = 5 * time.Minute
	defaultAttachInterval = 2 * time.Second
)

func (s *stepAttachDisk) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)
	client := state.Get("pveClient").(diskAttacher)
	vmRef := state.Get("vmRef").(*proxmox.VmRef)

	timeout := s.Timeout
	if timeout == 0 {
		timeout = defaultAttachTimeout
	}
	interval := s.Interval
	if interval == 0 {
		interval = defaultAttachInterval
	}

	ui.Say("Waiting for the imported disk to attach")
	err := retry.Config{
		StartTimeout: timeout,
		RetryDelay:   func() time.Duration { return interval },
	}.Run(ctx, func(ctx context.Context) error {
		attached, err := client.VolumeAttached(vmRef, bootSlot)
		if err != nil {
			return err
		}
		if !attached {
			return fmt.Errorf("volume not yet attached on %s", bootSlot)
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("Error waiting for disk attachment: %s", err)
		state.Put("error", err)
		ui.Error(err.Error())
		return multistep.ActionHalt
	}

	err = client.SetAttributes(vmRef, map[string]interface{}{
		"boot":     "order=" + bootSlot,
		"bootdisk": bootSlot,
	})
	if err != nil {
		err = fmt.Errorf("Error setting boot order: %s", err)
		state.Put("error", err)
		ui.Error(err.Error())
		return multistep.ActionHalt
	}

	return multistep.ActionContinue
}

func (s *stepAttachDisk) Cleanup(state multistep.StateBag) {}
