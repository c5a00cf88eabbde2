// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package placement resolves where a template lands before provisioning
// begins: the storage backend and a non-conflicting VM identifier.
package placement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"

	"github.com/pvetools/pvetemplate/internal/pve"
)

// prompter is the slice of the terminal UI placement needs.
type prompter interface {
	Ask(string) (string, error)
	Say(string)
}

// StorageLister queries the host for backends that accept VM disk images.
type StorageLister interface {
	ListImageStores() ([]pve.Storage, error)
}

// SelectStorage resolves the storage backend for the imported disk. When
// the host reports no eligible backends (or the query fails) the operator
// is asked for a name directly, defaulting to defaultStorage. An
// out-of-range selection falls back to the default rather than failing.
func SelectStorage(ui prompter, lister StorageLister, defaultStorage string) (string, error) {
	stores, err := lister.ListImageStores()
	if err != nil || len(stores) == 0 {
		if err != nil {
			ui.Say(fmt.Sprintf("Could not query storage backends: %s", err))
		}
		answer, err := ui.Ask(fmt.Sprintf("Storage backend [%s]", defaultStorage))
		if err != nil {
			return "", err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			return answer, nil
		}
		return defaultStorage, nil
	}

	ui.Say("Available storage backends:")
	for i, s := range stores {
		free := ""
		if s.Avail > 0 {
			free = fmt.Sprintf(", %s free", datasize.ByteSize(s.Avail).HumanReadable())
		}
		ui.Say(fmt.Sprintf("  [%d] %s (%s%s)", i+1, s.Name, s.Type, free))
	}

	answer, err := ui.Ask("Select storage [1]")
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return stores[0].Name, nil
	}
	index, err := strconv.Atoi(answer)
	if err != nil || index < 1 || index > len(stores) {
		ui.Say(fmt.Sprintf("Selection %q not in range, using %s", answer, defaultStorage))
		return defaultStorage, nil
	}
	return stores[index-1].Name, nil
}
