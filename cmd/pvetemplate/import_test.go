// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bytes"
	"strings"
	"testing"

	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvetools/pvetemplate/internal/catalog"
	"github.com/pvetools/pvetemplate/internal/provision"
)

// scriptedUi builds a real terminal UI fed from canned answers. Every Ask
// consumes one line; tests must supply exactly as many answers as the code
// under test asks for.
func scriptedUi(answers ...string) (packersdk.Ui, *bytes.Buffer) {
	var out bytes.Buffer
	input := strings.Join(answers, "\n") + "\n"
	return uiFor(strings.NewReader(input), &out, &out), &out
}

func testEntries() []catalog.ImageDescriptor {
	return []catalog.ImageDescriptor{
		{Name: "Debian 12", DefaultTemplateName: "debian-12-cloud"},
		{Name: "Fedora 40", DefaultTemplateName: "fedora-40-cloud"},
		{Name: "Ubuntu 24.04", DefaultTemplateName: "ubuntu-2404-cloud"},
	}
}

func TestSelectImagePreset(t *testing.T) {
	ui, _ := scriptedUi()
	entry, err := selectImage(ui, testEntries(), "fedora 40")
	require.NoError(t, err)
	assert.Equal(t, "Fedora 40", entry.Name)
}

func TestSelectImagePresetUnknown(t *testing.T) {
	ui, _ := scriptedUi()
	_, err := selectImage(ui, testEntries(), "Arch Linux")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the catalog")
}

func TestSelectImagePrompt(t *testing.T) {
	ui, out := scriptedUi("3")
	entry, err := selectImage(ui, testEntries(), "")
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu 24.04", entry.Name)
	assert.Contains(t, out.String(), "[1] Debian 12")
	assert.Contains(t, out.String(), "[3] Ubuntu 24.04")
}

func TestSelectImageDefaultsToFirst(t *testing.T) {
	ui, _ := scriptedUi("")
	entry, err := selectImage(ui, testEntries(), "")
	require.NoError(t, err)
	assert.Equal(t, "Debian 12", entry.Name)
}

func TestSelectImageRepromptsOnInvalid(t *testing.T) {
	ui, out := scriptedUi("99", "x", "2")
	entry, err := selectImage(ui, testEntries(), "")
	require.NoError(t, err)
	assert.Equal(t, "Fedora 40", entry.Name)
	assert.Contains(t, out.String(), `"99" not in range`)
}

func TestPromptTemplateName(t *testing.T) {
	ui, _ := scriptedUi()
	name, err := promptTemplateName(ui, "preset-name", "default-name")
	require.NoError(t, err)
	assert.Equal(t, "preset-name", name)

	ui, _ = scriptedUi("")
	name, err = promptTemplateName(ui, "", "default-name")
	require.NoError(t, err)
	assert.Equal(t, "default-name", name)

	ui, _ = scriptedUi("my-template")
	name, err = promptTemplateName(ui, "", "default-name")
	require.NoError(t, err)
	assert.Equal(t, "my-template", name)
}

func TestPromptCloudInit(t *testing.T) {
	importOpts.ciUser = ""
	importOpts.ciPassword = ""
	importOpts.dns = ""
	importOpts.dns2 = ""
	importOpts.searchDomain = ""

	ui, _ := scriptedUi("operator", "hunter2", "1.1.1.1", "8.8.8.8", "lab.example.com")
	ci, err := promptCloudInit(ui)
	require.NoError(t, err)
	assert.Equal(t, provision.CloudInit{
		User:         "operator",
		Password:     "hunter2",
		DNS1:         "1.1.1.1",
		DNS2:         "8.8.8.8",
		SearchDomain: "lab.example.com",
	}, ci)
}

func TestPromptCloudInitSkipsSecondaryWithoutPrimary(t *testing.T) {
	importOpts.ciUser = ""
	importOpts.ciPassword = ""
	importOpts.dns = ""
	importOpts.dns2 = ""
	importOpts.searchDomain = ""

	// user, password, primary DNS, search domain; no secondary DNS
	// prompt when the primary was left empty.
	ui, _ := scriptedUi("", "", "", "")
	ci, err := promptCloudInit(ui)
	require.NoError(t, err)
	assert.Equal(t, "admin", ci.User)
	assert.Empty(t, ci.DNS1)
	assert.Empty(t, ci.DNS2)
}

func TestPromptCloudInitFlagsPreseed(t *testing.T) {
	importOpts.ciUser = "flagged"
	importOpts.ciPassword = "pw"
	importOpts.dns = "9.9.9.9"
	importOpts.dns2 = "149.112.112.112"
	importOpts.searchDomain = "corp.example.com"
	defer func() {
		importOpts.ciUser = ""
		importOpts.ciPassword = ""
		importOpts.dns = ""
		importOpts.dns2 = ""
		importOpts.searchDomain = ""
	}()

	// No prompts expected, so no scripted answers supplied.
	ui, _ := scriptedUi()
	ci, err := promptCloudInit(ui)
	require.NoError(t, err)
	assert.Equal(t, "flagged", ci.User)
	assert.Equal(t, "9.9.9.9", ci.DNS1)
}

func TestPromptYesNo(t *testing.T) {
	cs := []struct {
		answer     string
		defaultYes bool
		expected   bool
	}{
		{"", false, false},
		{"y", false, true},
		{"yes", false, true},
		{"n", false, false},
		{"", true, true},
		{"n", true, false},
		{"no", true, false},
		{"y", true, true},
	}

	for _, c := range cs {
		ui, _ := scriptedUi(c.answer)
		got, err := promptYesNo(ui, "Continue? [y/n]", c.defaultYes)
		require.NoError(t, err)
		assert.Equal(t, c.expected, got, "answer %q default %v", c.answer, c.defaultYes)
	}
}

func TestValidateSizing(t *testing.T) {
	assert.NoError(t, validateSizing(2048, 2, 1))
	assert.Error(t, validateSizing(0, 2, 1))
	assert.Error(t, validateSizing(2048, 0, 1))
	assert.Error(t, validateSizing(2048, 2, 0))
	assert.Error(t, validateSizing(-512, 2, 1))
}

func TestIoTTYReadString(t *testing.T) {
	tty := newTTY(strings.NewReader("first line\r\nsecond"))

	line, err := tty.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "first line", line)

	// Final line without a trailing newline is still delivered.
	line, err = tty.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "second", line)
}
