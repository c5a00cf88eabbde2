// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"

	"github.com/pvetools/pvetemplate/internal/imagefile"
	"github.com/pvetools/pvetemplate/internal/pve"
)

// stepCreateVM creates the VM shell the disk will be imported into. The
// identifier namespace is shared cluster-wide without reservation, so a
// resolved identifier can still collide at creation time; on a duplicate-ID
// error the step re-enters the resolver with the conflicting identifier,
// which reports the conflict and asks for another one.
type stepCreateVM struct{}

type vmCreator interface {
	Node() string
	Create(*proxmox.VmRef, proxmox.ConfigQemu) error
}

var _ vmCreator = &pve.Client{}

func (s *stepCreateVM) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)
	client := state.Get("pveClient").(vmCreator)
	resolver := state.Get("idResolver").(identifierResolver)
	target := state.Get("target").(*Target)
	artifact := state.Get("artifact").(*imagefile.Artifact)

	config := vmConfig(target, artifact)

	ui.Say("Creating VM")
	requested := target.TemplateID
	var vmRef *proxmox.VmRef
	for {
		id, err := resolver.Resolve(requested)
		if err != nil {
			err = fmt.Errorf("Error resolving VM ID: %s", err)
			state.Put("error", err)
			ui.Error(err.Error())
			return multistep.ActionHalt
		}

		vmRef = proxmox.NewVmRef(id)
		vmRef.SetNode(client.Node())
		vmRef.SetVmType("qemu")

		err = client.Create(vmRef, config)
		if err == nil {
			break
		}
		// The identifier was free when resolved but another actor claimed
		// it first. Feed it back to the resolver so the operator is told
		// and asked again.
		if isDuplicateIDError(err) {
			ui.Say(fmt.Sprintf("VM ID %d was claimed while creating, picking another", id))
			requested = id
			continue
		}
		err = fmt.Errorf("Error creating VM: %s", err)
		state.Put("error", err)
		ui.Error(err.Error())
		return multistep.ActionHalt
	}

	ui.Say(fmt.Sprintf("Created VM %d", vmRef.VmId()))
	state.Put("vmRef", vmRef)
	return multistep.ActionContinue
}

// No rollback: once the shell exists it stays for manual inspection, even
// when a later transition fails.
func (s *stepCreateVM) Cleanup(state multistep.StateBag) {}

func vmConfig(target *Target, artifact *imagefile.Artifact) proxmox.ConfigQemu {
	kvm := true
	onboot := false

	config := proxmox.ConfigQemu{
		Name:         target.TemplateName,
		Agent:        1,
		QemuKVM:      &kvm,
		Description:  fmt.Sprintf("Template built from %s", filepath.Base(artifact.LocalPath)),
		Memory:       target.MemoryMB,
		QemuCores:    target.Cores,
		QemuSockets:  target.Sockets,
		QemuOs:       "l26",
		Scsihw:       "virtio-scsi-pci",
		QemuNetworks: defaultNetworkAdapters(),
		Onboot:       &onboot,
	}

	switch {
	case artifact.DesktopVariant:
		// Desktop images carry a display manager, give them a proper
		// display adapter and no serial console.
		config.QemuVga = proxmox.QemuDevice{"type": "qxl"}
	case artifact.RedHatFamily:
		// RHEL-family cloud images ship a kernel console on the default
		// display; leave the VGA adapter alone.
	default:
		// Debian-family cloud images log to the serial console.
		config.QemuSerials = proxmox.QemuDevices{0: {"type": "socket"}}
		config.QemuVga = proxmox.QemuDevice{"type": "serial0"}
	}

	// Firmware selection happens at creation and nowhere else.
	if target.EnableEFI {
		config.Bios = "ovmf"
		config.EFIDisk = proxmox.QemuDevice{
			"storage":           target.Storage,
			"efitype":           "4m",
			"pre-enrolled-keys": "0",
		}
	}

	return config
}

func defaultNetworkAdapters() proxmox.QemuDevices {
	return proxmox.QemuDevices{
		0: {
			"model":    "virtio",
			"bridge":   "vmbr0",
			"firewall": "false",
		},
	}
}

func isDuplicateIDError(err error) bool {
	return strings.Contains(err.Error(), "already exists on node")
}
