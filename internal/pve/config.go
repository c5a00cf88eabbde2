// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Telmate/proxmox-api-go/proxmox"
	"github.com/sirupsen/logrus"
)

// Config carries the connection settings for the Proxmox API.
type Config struct {
	// URL to the Proxmox API, including the full path,
	// so `https://<server>:<port>/api2/json` for example.
	// Can also be set via the `PROXMOX_URL` environment variable.
	URL string
	// Username when authenticating to Proxmox, including the realm.
	// When using token authentication, the username must include the
	// token id after an exclamation mark, e.g. `user@pve!tokenid`.
	// Can also be set via the `PROXMOX_USERNAME` environment variable.
	Username string
	// Password for the user. Can also be set via `PROXMOX_PASSWORD`.
	Password string
	// Token for authenticating API calls; takes precedence over Password.
	// Can also be set via `PROXMOX_TOKEN`.
	Token string
	// Node to operate on. Discovered from the cluster when empty.
	Node string
	// Skip validating the API certificate.
	SkipCertValidation bool
	// Timeout for Proxmox API tasks. Defaults to 10 minutes; disk imports
	// of large images are slow.
	TaskTimeout time.Duration
}

// ApplyEnvDefaults fills unset fields from the PROXMOX_* environment
// variables.
func (c *Config) ApplyEnvDefaults() {
	if c.URL == "" {
		c.URL = os.Getenv("PROXMOX_URL")
	}
	if c.Username == "" {
		c.Username = os.Getenv("PROXMOX_USERNAME")
	}
	if c.Password == "" {
		c.Password = os.Getenv("PROXMOX_PASSWORD")
	}
	if c.Token == "" {
		c.Token = os.Getenv("PROXMOX_TOKEN")
	}
	if c.Node == "" {
		c.Node = os.Getenv("PROXMOX_NODE")
	}
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("proxmox API url must be specified")
	}
	if c.Username == "" {
		return errors.New("username must be specified")
	}
	if c.Password == "" && c.Token == "" {
		return errors.New("password or token must be specified")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("could not parse proxmox url: %s", err)
	}
	return nil
}

// Connect builds an authenticated API client and resolves the target node.
func Connect(config Config, logger logrus.FieldLogger) (*Client, error) {
	config.ApplyEnvDefaults()
	if config.TaskTimeout == 0 {
		config.TaskTimeout = 10 * time.Minute
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: config.SkipCertValidation,
	}

	api, err := proxmox.NewClient(strings.TrimSuffix(config.URL, "/"), nil, "", tlsConfig, "", int(config.TaskTimeout.Seconds()))
	if err != nil {
		return nil, err
	}

	if config.Token != "" {
		logger.Debug("using token auth")
		api.SetAPIToken(config.Username, config.Token)
	} else {
		logger.Debug("using password auth")
		if err := api.Login(config.Username, config.Password, ""); err != nil {
			return nil, err
		}
	}

	client := &Client{api: api, node: config.Node, logger: logger}
	if client.node == "" {
		node, err := client.firstNode()
		if err != nil {
			return nil, fmt.Errorf("no node configured and discovery failed: %s", err)
		}
		logger.WithField("node", node).Debug("discovered node")
		client.node = node
	}
	return client, nil
}
