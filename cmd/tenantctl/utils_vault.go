// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	api "github.com/hashicorp/vault/api"

	vaultclient "github.com/m365ops/tenantctl/pkg/clients/vault"
	"github.com/m365ops/tenantctl/pkg/core/config"
)

// configureVaultClient creates the Vault API client, if enabled.
func configureVaultClient(conf *config.Config) error {
	if !conf.Vault.IsEnabled {
		slog.Warn("Vault is not enabled, will not create API client")

		return nil
	}

	slog.Info("configuring vault client")
	apiConfig := api.DefaultConfig()
	apiConfig.Address = conf.Vault.Endpoint

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return fmt.Errorf("vault: cannot create client: %w", err)
	}

	token := conf.Vault.Token
	if token == "" && conf.Vault.TokenFile != "" {
		data, err := os.ReadFile(conf.Vault.TokenFile)
		if err != nil {
			return fmt.Errorf("vault: cannot read token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}

	if token != "" {
		client.SetToken(token)
	}

	vaultclient.SetClient(client)
	slog.Info("configured vault client", "address", conf.Vault.Endpoint)

	return nil
}
