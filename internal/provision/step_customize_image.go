// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"

	"github.com/pvetools/pvetemplate/internal/exectool"
	"github.com/pvetools/pvetemplate/internal/imagefile"
)

// stepCustomizeImage injects qemu-guest-agent into the local disk image
// before import, so the resulting template reports addresses through the
// agent on first boot. The step is best-effort: customization failures are
// reported and the pipeline continues with the unmodified image.
type stepCustomizeImage struct {
	Customizer Customizer
}

var _ Customizer = &exectool.VirtCustomize{}

func (s *stepCustomizeImage) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)
	artifact := state.Get("artifact").(*imagefile.Artifact)

	if s.Customizer == nil {
		return multistep.ActionContinue
	}

	ui.Say("Installing qemu-guest-agent into the image")
	if err := s.Customizer.InstallPackages(ctx, artifact.LocalPath, "qemu-guest-agent"); err != nil {
		ui.Error(fmt.Sprintf("Image customization failed, continuing without guest agent: %s", err))
	}

	return multistep.ActionContinue
}

func (s *stepCustomizeImage) Cleanup(state multistep.StateBag) {}
