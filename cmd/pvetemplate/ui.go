// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
)

// ioTTY adapts a plain reader to the packersdk.TTY interface so that
// BasicUi.Ask works on stdin (and on scripted readers in tests).
type ioTTY struct {
	r *bufio.Reader
}

func newTTY(r io.Reader) *ioTTY {
	return &ioTTY{r: bufio.NewReader(r)}
}

func (t *ioTTY) ReadString() (string, error) {
	line, err := t.r.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err == io.EOF && line != "" {
		return line, nil
	}
	return line, err
}

func (t *ioTTY) Close() error { return nil }

var _ packersdk.TTY = &ioTTY{}

// redErrorUi paints diagnostics red before handing them to the wrapped UI,
// which writes them to stderr. Flow output passes through unchanged.
type redErrorUi struct {
	packersdk.Ui
}

func (u redErrorUi) Error(message string) {
	u.Ui.Error("\033[1;31m" + message + "\033[0m")
}

// newUi builds the terminal UI: plain flow output on stdout, red
// diagnostics on stderr.
func newUi() packersdk.Ui {
	return uiFor(os.Stdin, os.Stdout, os.Stderr)
}

func uiFor(in io.Reader, out, errOut io.Writer) packersdk.Ui {
	return redErrorUi{
		Ui: &packersdk.BasicUi{
			Reader:      in,
			Writer:      out,
			ErrorWriter: errOut,
			TTY:         newTTY(in),
			PB:          &packersdk.NoopProgressTracker{},
		},
	}
}
