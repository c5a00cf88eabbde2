// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pvetools/pvetemplate/internal/pve"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List running VMs and their addresses",
	Long: `List the running VMs on the cluster with the addresses reported by
the qemu guest agent. VMs without a running agent show no addresses.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect()
		if err != nil {
			return err
		}

		guests, err := client.ListGuests()
		if err != nil {
			return fmt.Errorf("listing VMs: %w", err)
		}

		running := []guestRow{}
		for _, g := range guests {
			if g.Template || g.Status != "running" {
				continue
			}
			// Address lookup is best-effort: guests without an agent
			// simply get an empty column.
			addresses, _ := client.GuestAddresses(g)
			running = append(running, guestRow{guest: g, addresses: addresses})
		}

		fmt.Print(formatGuestTable(running))
		return nil
	},
}

type guestRow struct {
	guest     pve.Guest
	addresses []string
}

func formatGuestTable(rows []guestRow) string {
	if len(rows) == 0 {
		return "No running VMs\n"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VMID\tNAME\tNODE\tADDRESSES")
	for _, r := range rows {
		addresses := "-"
		if len(r.addresses) > 0 {
			addresses = strings.Join(r.addresses, ", ")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.guest.ID, r.guest.Name, r.guest.Node, addresses)
	}
	w.Flush()
	return buf.String()
}
