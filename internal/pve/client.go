// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package pve adapts the Proxmox API client to the handful of operations the
// template-import workflow needs: VM lifecycle, disk import, storage and
// identifier queries.
package pve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/sirupsen/logrus"
)

// Client wraps the Proxmox API client for a single node.
type Client struct {
	api    *proxmox.Client
	node   string
	logger logrus.FieldLogger
}

// Storage is one storage backend eligible for VM disk images.
type Storage struct {
	Name   string `mapstructure:"storage"`
	Type   string `mapstructure:"type"`
	Active int    `mapstructure:"active"`
	Avail  uint64 `mapstructure:"avail"`
}

// Guest is a VM known to the cluster.
type Guest struct {
	ID       int
	Name     string
	Node     string
	Status   string
	Template bool
}

// Node returns the node name the client operates on.
func (c *Client) Node() string {
	return c.node
}

// NextFreeIdentifier asks the cluster for the next unassigned VM ID.
func (c *Client) NextFreeIdentifier() (int, error) {
	return c.api.GetNextID(0)
}

// ListIdentifiers returns every VM/template ID currently assigned on the
// cluster, sorted ascending.
func (c *Client) ListIdentifiers() ([]int, error) {
	guests, err := proxmox.ListGuests(c.api)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(guests))
	for _, g := range guests {
		ids = append(ids, int(g.Id))
	}
	sort.Ints(ids)
	return ids, nil
}

// ListGuests returns all guests on the cluster.
func (c *Client) ListGuests() ([]Guest, error) {
	guests, err := proxmox.ListGuests(c.api)
	if err != nil {
		return nil, err
	}
	out := make([]Guest, 0, len(guests))
	for _, g := range guests {
		out = append(out, Guest{
			ID:       int(g.Id),
			Name:     g.Name,
			Node:     g.Node,
			Status:   g.Status,
			Template: g.Template,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create creates the VM shell described by config.
func (c *Client) Create(vmr *proxmox.VmRef, config proxmox.ConfigQemu) error {
	return config.Create(vmr, c.api)
}

// ImportDisk imports a local disk image into the given storage and attaches
// it at the given slot. The storage backend chooses the on-disk format; the
// source format tag is logged for the operator.
func (c *Client) ImportDisk(vmr *proxmox.VmRef, slot, storage, path, format string) error {
	c.logger.WithFields(logrus.Fields{
		"vmid":    vmr.VmId(),
		"storage": storage,
		"path":    path,
		"format":  format,
	}).Debug("importing disk")

	_, err := c.api.SetVmConfig(vmr, map[string]interface{}{
		slot: fmt.Sprintf("%s:0,import-from=%s", storage, path),
	})
	return err
}

// VolumeAttached reports whether the given slot of the VM references an
// allocated volume, i.e. the import has materialized on the storage layer.
func (c *Client) VolumeAttached(vmr *proxmox.VmRef, slot string) (bool, error) {
	config, err := c.api.GetVmConfig(vmr)
	if err != nil {
		return false, err
	}
	value, ok := config[slot].(string)
	if !ok {
		return false, nil
	}
	// A materialized volume reads like "local-lvm:vm-100-disk-0,size=3G";
	// while the import task is pending the value still carries import-from.
	return strings.Contains(value, "-disk-") && !strings.Contains(value, "import-from"), nil
}

// SetAttributes applies configuration attributes to a VM.
func (c *Client) SetAttributes(vmr *proxmox.VmRef, attrs map[string]interface{}) error {
	_, err := c.api.SetVmConfig(vmr, attrs)
	return err
}

// ConvertToTemplate marks the VM as a template.
func (c *Client) ConvertToTemplate(vmr *proxmox.VmRef) error {
	return c.api.CreateTemplate(vmr)
}

// ListImageStores returns storage backends on the node that accept VM disk
// images, active ones first.
func (c *Client) ListImageStores() ([]Storage, error) {
	var data map[string]interface{}
	url := fmt.Sprintf("/nodes/%s/storage?content=images", c.node)
	if err := c.api.GetJsonRetryable(url, &data, 3); err != nil {
		return nil, err
	}
	return parseImageStores(data)
}

// GuestAddresses queries the QEMU guest agent for the VM's non-loopback IP
// addresses. Returns an error when the agent is not running in the guest.
func (c *Client) GuestAddresses(g Guest) ([]string, error) {
	var data map[string]interface{}
	url := fmt.Sprintf("/nodes/%s/qemu/%d/agent/network-get-interfaces", g.Node, g.ID)
	if err := c.api.GetJsonRetryable(url, &data, 1); err != nil {
		return nil, err
	}
	return parseGuestAddresses(data)
}

func (c *Client) firstNode() (string, error) {
	list, err := c.api.GetNodeList()
	if err != nil {
		return "", err
	}
	data, _ := list["data"].([]interface{})
	for _, item := range data {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if node, ok := m["node"].(string); ok {
			return node, nil
		}
	}
	return "", fmt.Errorf("cluster reported no nodes")
}
