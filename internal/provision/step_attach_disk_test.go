// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attacherMock struct {
	volumeAttached func(*proxmox.VmRef, string) (bool, error)
	setAttributes  func(*proxmox.VmRef, map[string]interface{}) error
}

func (m attacherMock) VolumeAttached(vmr *proxmox.VmRef, slot string) (bool, error) {
	return m.volumeAttached(vmr, slot)
}
func (m attacherMock) SetAttributes(vmr *proxmox.VmRef, attrs map[string]interface{}) error {
	return m.setAttributes(vmr, attrs)
}

var _ diskAttacher = attacherMock{}

func attachState(t *testing.T, attacher diskAttacher) *multistep.BasicStateBag {
	state := new(multistep.BasicStateBag)
	state.Put("ui", packersdk.TestUi(t))
	state.Put("pveClient", attacher)
	state.Put("vmRef", proxmox.NewVmRef(100))
	return state
}

func TestAttachDiskPollsUntilVisible(t *testing.T) {
	checks := 0
	var bootAttrs map[string]interface{}
	attacher := attacherMock{
		volumeAttached: func(vmr *proxmox.VmRef, slot string) (bool, error) {
			assert.Equal(t, "scsi0", slot)
			checks++
			return checks >= 3, nil
		},
		setAttributes: func(vmr *proxmox.VmRef, attrs map[string]interface{}) error {
			bootAttrs = attrs
			return nil
		},
	}

	step := &stepAttachDisk{Timeout: time.Minute, Interval: time.Millisecond}
	action := step.Run(context.TODO(), attachState(t, attacher))
	assert.Equal(t, multistep.ActionContinue, action)
	assert.Equal(t, 3, checks)
	require.NotNil(t, bootAttrs, "boot order must be set after attachment")
	assert.Equal(t, "order=scsi0", bootAttrs["boot"])
	assert.Equal(t, "scsi0", bootAttrs["bootdisk"])
}

func TestAttachDiskTimesOut(t *testing.T) {
	attacher := attacherMock{
		volumeAttached: func(vmr *proxmox.VmRef, slot string) (bool, error) {
			return false, nil
		},
		setAttributes: func(vmr *proxmox.VmRef, attrs map[string]interface{}) error {
			t.Error("did not expect SetAttributes on timeout")
			return nil
		},
	}

	state := attachState(t, attacher)
	step := &stepAttachDisk{Timeout: 10 * time.Millisecond, Interval: time.Millisecond}
	action := step.Run(context.TODO(), state)
	assert.Equal(t, multistep.ActionHalt, action)
	_, ok := state.GetOk("error")
	assert.True(t, ok)
}

func TestAttachDiskQueryError(t *testing.T) {
	attacher := attacherMock{
		volumeAttached: func(vmr *proxmox.VmRef, slot string) (bool, error) {
			return false, errors.New("connection reset")
		},
		setAttributes: func(vmr *proxmox.VmRef, attrs map[string]interface{}) error {
			t.Error("did not expect SetAttributes after a query error")
			return nil
		},
	}

	state := attachState(t, attacher)
	step := &stepAttachDisk{Timeout: 10 * time.Millisecond, Interval: time.Millisecond}
	action := step.Run(context.TODO(), state)
	assert.Equal(t, multistep.ActionHalt, action)
}

func TestAttachDiskBootOrderError(t *testing.T) {
	attacher := attacherMock{
		volumeAttached: func(vmr *proxmox.VmRef, slot string) (bool, error) {
			return true, nil
		},
		setAttributes: func(vmr *proxmox.VmRef, attrs map[string]interface{}) error {
			return errors.New("config locked")
		},
	}

	state := attachState(t, attacher)
	step := &stepAttachDisk{Timeout: time.Minute}
	action := step.Run(context.TODO(), state)
	assert.Equal(t, multistep.ActionHalt, action)
}
