// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	graphclients "github.com/m365ops/tenantctl/pkg/clients/graph"
	vaultclient "github.com/m365ops/tenantctl/pkg/clients/vault"
	"github.com/m365ops/tenantctl/pkg/core/config"
	"github.com/m365ops/tenantctl/pkg/graph/constants"
)

// errNoGraphCredentials is an error, which is returned when a tenant refers
// to named credentials, which were not configured.
var errNoGraphCredentials = errors.New("no graph credentials configured")

// validateGraphConfig validates the Microsoft Graph configuration settings.
func validateGraphConfig(conf *config.Config) error {
	if !conf.Graph.IsEnabled {
		return nil
	}

	for _, tenant := range conf.Graph.Tenants {
		if tenant.TenantID == "" {
			return fmt.Errorf("graph: no tenant id configured for %q", tenant.Name)
		}

		if tenant.UseCredentials == "" {
			return fmt.Errorf("graph: no credentials configured for tenant %s", tenant.TenantID)
		}

		if _, ok := conf.Graph.Credentials[tenant.UseCredentials]; !ok {
			return fmt.Errorf("%w: tenant %s refers to %q", errNoGraphCredentials, tenant.TenantID, tenant.UseCredentials)
		}
	}

	return nil
}

// newGraphCredential creates a new [azcore.TokenCredential] from the given
// named credentials config.
func newGraphCredential(ctx context.Context, name string, creds config.GraphCredentialsConfig) (azcore.TokenCredential, error) {
	switch creds.Authentication {
	case config.GraphAuthenticationMethodDefault:
		return azidentity.NewDefaultAzureCredential(nil)
	case config.GraphAuthenticationMethodClientSecret:
		return azidentity.NewClientSecretCredential(
			creds.ClientSecret.TenantID,
			creds.ClientSecret.ClientID,
			creds.ClientSecret.ClientSecret,
			nil,
		)
	case config.GraphAuthenticationMethodClientSecretVault:
		if vaultclient.Client == nil {
			return nil, fmt.Errorf("graph: %s: vault client is not configured", name)
		}

		secretKey := creds.ClientSecretVault.SecretKey
		if secretKey == "" {
			secretKey = "client_secret"
		}

		secret, err := vaultclient.ReadKVSecretKey(
			ctx,
			vaultclient.Client,
			creds.ClientSecretVault.SecretEngine,
			creds.ClientSecretVault.SecretPath,
			secretKey,
		)
		if err != nil {
			return nil, fmt.Errorf("graph: %s: %w", name, err)
		}

		return azidentity.NewClientSecretCredential(
			creds.ClientSecretVault.TenantID,
			creds.ClientSecretVault.ClientID,
			secret,
			nil,
		)
	case config.GraphAuthenticationMethodWorkloadIdentity:
		opts := &azidentity.WorkloadIdentityCredentialOptions{
			TenantID:      creds.WorkloadIdentity.TenantID,
			ClientID:      creds.WorkloadIdentity.ClientID,
			TokenFilePath: creds.WorkloadIdentity.TokenFile,
		}

		return azidentity.NewWorkloadIdentityCredential(opts)
	default:
		return nil, fmt.Errorf("graph: %s: unknown authentication method %q", name, creds.Authentication)
	}
}

// configureGraphClients creates the Microsoft Graph API clients for all
// configured tenants and registers them with the clientset.
func configureGraphClients(ctx context.Context, conf *config.Config) error {
	if !conf.Graph.IsEnabled {
		slog.Warn("Microsoft Graph is not enabled, will not create API clients")

		return nil
	}

	slog.Info("configuring microsoft graph clients")

	credentials := make(map[string]azcore.TokenCredential)
	for name, creds := range conf.Graph.Credentials {
		cred, err := newGraphCredential(ctx, name, creds)
		if err != nil {
			return err
		}
		credentials[name] = cred
	}

	scopes := []string{constants.DefaultScope}
	for _, tenant := range conf.Graph.Tenants {
		cred, ok := credentials[tenant.UseCredentials]
		if !ok {
			return fmt.Errorf("%w: tenant %s refers to %q", errNoGraphCredentials, tenant.TenantID, tenant.UseCredentials)
		}

		apiClient, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, scopes)
		if err != nil {
			return fmt.Errorf("graph: cannot create client for tenant %s: %w", tenant.TenantID, err)
		}

		client := &graphclients.Client[*msgraphsdk.GraphServiceClient]{
			NamedCredentials: tenant.UseCredentials,
			TenantID:         tenant.TenantID,
			TenantName:       tenant.Name,
			Client:           apiClient,
		}
		graphclients.Clientset.Overwrite(tenant.TenantID, client)

		slog.Info(
			"configured microsoft graph client",
			"tenant_id", tenant.TenantID,
			"tenant_name", tenant.Name,
			"credentials", tenant.UseCredentials,
		)
	}

	return nil
}
