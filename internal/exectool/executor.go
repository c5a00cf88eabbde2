// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package exectool wraps the external tools the import workflow shells out
// to: qemu-img, 7z, virt-customize and the apt package manager.
package exectool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Executor runs an external command. The local implementation shells out;
// tests substitute a recording fake.
type Executor interface {
	Execute(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (exitCode int, err error)
	LookPath(command string) (string, error)
}

// Result captures a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunAndCapture runs a command through an Executor and collects its output.
func RunAndCapture(ctx context.Context, e Executor, command string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	code, err := e.Execute(ctx, &stdout, &stderr, command, args...)
	return Result{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, err
}

// Local executes commands on the host the tool runs on.
type Local struct {
	logger logrus.FieldLogger
}

func NewLocal(logger logrus.FieldLogger) *Local {
	return &Local{logger: logger}
}

var _ Executor = &Local{}

func (e *Local) Execute(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (int, error) {
	e.logger.WithField("cmd", command+" "+strings.Join(args, " ")).Debug("executing command")

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			e.logger.WithFields(logrus.Fields{"cmd": command, "exit_code": code}).Debug("command failed")
			return code, fmt.Errorf("%s exited with code %d", command, code)
		}
		return -1, fmt.Errorf("running %s: %w", command, err)
	}
	return 0, nil
}

func (e *Local) LookPath(command string) (string, error) {
	return exec.LookPath(command)
}
