// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/sirupsen/logrus"

	"github.com/pvetools/pvetemplate/internal/imagefile"
	"github.com/pvetools/pvetemplate/internal/placement"
	"github.com/pvetools/pvetemplate/internal/pve"
)

// identifierResolver hands out a VM identifier that was free at the time of
// checking. Creation can still fail on a duplicate when another actor grabs
// the same identifier first; stepCreateVM re-enters Resolve in that case.
type identifierResolver interface {
	Resolve(requested int) (int, error)
}

var _ identifierResolver = &placement.IDResolver{}

// Customizer modifies the local disk image before it is imported.
type Customizer interface {
	InstallPackages(ctx context.Context, path string, packages ...string) error
}

// ComputeClient is the union of the per-step client interfaces.
type ComputeClient interface {
	Node() string
	Create(*proxmox.VmRef, proxmox.ConfigQemu) error
	ImportDisk(vmr *proxmox.VmRef, slot, storage, path, format string) error
	VolumeAttached(vmr *proxmox.VmRef, slot string) (bool, error)
	SetAttributes(vmr *proxmox.VmRef, attrs map[string]interface{}) error
	ConvertToTemplate(vmr *proxmox.VmRef) error
}

var _ ComputeClient = &pve.Client{}

// Provisioner drives the template pipeline against a single node.
type Provisioner struct {
	Client   ComputeClient
	Resolver identifierResolver
	Logger   logrus.FieldLogger

	// Customizer is optional; when nil the image is imported as-is.
	Customizer Customizer
}

// Run executes the pipeline and returns the identifier of the created
// template. The returned error carries the failing transition; the VM, if
// one was created, is left as-is.
func (p *Provisioner) Run(ctx context.Context, ui packersdk.Ui, target Target, artifact imagefile.Artifact) (int, error) {
	state := new(multistep.BasicStateBag)
	state.Put("ui", ui)
	state.Put("pveClient", p.Client)
	state.Put("idResolver", p.Resolver)
	state.Put("target", &target)
	state.Put("artifact", &artifact)

	steps := []multistep.Step{
		&stepCustomizeImage{Customizer: p.Customizer},
		&stepCreateVM{},
		&stepImportDisk{},
		&stepAttachDisk{},
		&stepApplyCloudInit{},
		&stepConvertToTemplate{},
	}

	runner := &multistep.BasicRunner{Steps: steps}
	runner.Run(ctx, state)

	if rawErr, ok := state.GetOk("error"); ok {
		return 0, rawErr.(error)
	}
	if _, ok := state.GetOk(multistep.StateCancelled); ok {
		return 0, errors.New("provisioning was cancelled")
	}
	if _, ok := state.GetOk("success"); !ok {
		return 0, errors.New("provisioning was halted")
	}

	vmRef := state.Get("vmRef").(*proxmox.VmRef)
	if p.Logger != nil {
		p.Logger.WithField("vmid", vmRef.VmId()).Debug("template pipeline finished")
	}
	return vmRef.VmId(), nil
}
