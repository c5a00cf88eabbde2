// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package exectool

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInstallDeclined is returned when the operator declines installing a
// missing tool. Callers decide whether that is fatal for their feature.
var ErrInstallDeclined = errors.New("tool installation declined")

type confirmer interface {
	Ask(string) (string, error)
	Say(string)
}

type installer interface {
	Install(ctx context.Context, name string) error
}

// EnsureTool makes sure a command is available, offering to install the
// providing package when it is not.
func EnsureTool(ctx context.Context, ui confirmer, exec Executor, pkgs installer, command, pkg string) error {
	if _, err := exec.LookPath(command); err == nil {
		return nil
	}

	answer, err := ui.Ask(fmt.Sprintf("%s is not installed. Install package %s? [y/N]", command, pkg))
	if err != nil {
		return err
	}
	if !isYes(answer) {
		return fmt.Errorf("%s requires %s: %w", command, pkg, ErrInstallDeclined)
	}

	ui.Say(fmt.Sprintf("Installing %s", pkg))
	if err := pkgs.Install(ctx, pkg); err != nil {
		return err
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("%s still not available after installing %s", command, pkg)
	}
	return nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
