// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package provision turns a normalized disk image into a VM template on a
// Proxmox node. The pipeline walks a fixed sequence of transitions: create
// the VM shell, import the disk, attach it as the boot volume, apply guest
// configuration, convert to template. Once the shell exists any failure is
// fatal and the VM is left in its last reached state for manual inspection.
package provision

import (
	"strings"
)

// CloudInit carries the first-boot guest settings applied through the
// cloud-init drive. Empty fields are simply not set on the VM.
type CloudInit struct {
	User         string
	Password     string
	DNS1         string
	DNS2         string
	SearchDomain string
}

// Nameserver returns the space-separated server list the config API
// expects, or "" when no server was given.
func (c CloudInit) Nameserver() string {
	servers := []string{}
	for _, s := range []string{c.DNS1, c.DNS2} {
		if s != "" {
			servers = append(servers, s)
		}
	}
	return strings.Join(servers, " ")
}

// Target describes the template to produce.
type Target struct {
	TemplateID   int
	TemplateName string
	Storage      string
	EnableEFI    bool
	CloudInit    CloudInit

	MemoryMB int
	Cores    int
	Sockets  int
}
