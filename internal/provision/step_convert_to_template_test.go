// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/stretchr/testify/assert"
)

type converterMock struct {
	convertToTemplate func(*proxmox.VmRef) error
}

func (m converterMock) ConvertToTemplate(vmr *proxmox.VmRef) error {
	return m.convertToTemplate(vmr)
}

var _ templateConverter = converterMock{}

func TestConvertToTemplate(t *testing.T) {
	cs := []struct {
		name           string
		convertErr     error
		expectedAction multistep.StepAction
		expectSuccess  bool
	}{
		{
			name:           "conversion succeeds and marks the run",
			expectedAction: multistep.ActionContinue,
			expectSuccess:  true,
		},
		{
			name:           "conversion failure halts",
			convertErr:     errors.New("VM is running"),
			expectedAction: multistep.ActionHalt,
			expectSuccess:  false,
		},
	}

	const vmid = 100

	for _, c := range cs {
		t.Run(c.name, func(t *testing.T) {
			mock := converterMock{convertToTemplate: func(vmr *proxmox.VmRef) error {
				assert.Equal(t, vmid, vmr.VmId())
				return c.convertErr
			}}

			state := new(multistep.BasicStateBag)
			state.Put("ui", packersdk.TestUi(t))
			state.Put("pveClient", mock)
			state.Put("vmRef", proxmox.NewVmRef(vmid))

			step := &stepConvertToTemplate{}
			action := step.Run(context.TODO(), state)
			assert.Equal(t, c.expectedAction, action)

			_, success := state.GetOk("success")
			assert.Equal(t, c.expectSuccess, success)
		})
	}
}
