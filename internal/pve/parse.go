// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"sort"

	"github.com/mitchellh/mapstructure"
)

// parseImageStores decodes the /nodes/<node>/storage response. Active
// backends sort before inactive ones, alphabetical within each group.
func parseImageStores(response map[string]interface{}) ([]Storage, error) {
	data, _ := response["data"].([]interface{})
	stores := make([]Storage, 0, len(data))
	for _, item := range data {
		var s Storage
		if err := mapstructure.WeakDecode(item, &s); err != nil {
			return nil, err
		}
		if s.Name == "" {
			continue
		}
		stores = append(stores, s)
	}
	sort.Slice(stores, func(i, j int) bool {
		if stores[i].Active != stores[j].Active {
			return stores[i].Active > stores[j].Active
		}
		return stores[i].Name < stores[j].Name
	})
	return stores, nil
}

// parseGuestAddresses extracts non-loopback IPv4/IPv6 addresses from a
// guest agent network-get-interfaces response.
func parseGuestAddresses(response map[string]interface{}) ([]string, error) {
	type ipAddress struct {
		Address string `mapstructure:"ip-address"`
		Type    string `mapstructure:"ip-address-type"`
	}
	type iface struct {
		Name        string      `mapstructure:"name"`
		IPAddresses []ipAddress `mapstructure:"ip-addresses"`
	}

	data, _ := response["data"].(map[string]interface{})
	var result struct {
		Result []iface `mapstructure:"result"`
	}
	if err := mapstructure.WeakDecode(data, &result); err != nil {
		return nil, err
	}

	var addresses []string
	for _, ifc := range result.Result {
		if ifc.Name == "lo" {
			continue
		}
		for _, addr := range ifc.IPAddresses {
			if addr.Address == "" || addr.Address == "127.0.0.1" || addr.Address == "::1" {
				continue
			}
			addresses = append(addresses, addr.Address)
		}
	}
	return addresses, nil
}
