// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package vault provides the Vault API client used by tenantctl for reading
// Graph client secrets from a Vault KV-v2 secret engine.
package vault

import (
	"context"
	"errors"
	"fmt"

	api "github.com/hashicorp/vault/api"
)

// ErrNoSecretKey is an error, which is returned when a secret was read from
// Vault, but the expected key was not present in the secret data.
var ErrNoSecretKey = errors.New("key not found in secret data")

// Client is the Vault API client used during runtime.
var Client *api.Client

// SetClient shall be invoked from cli commands to set the Vault API client.
func SetClient(c *api.Client) {
	Client = c
}

// ReadKVSecretKey reads the secret at the given KV-v2 secret engine and path,
// and returns the string value stored under the given key.
func ReadKVSecretKey(ctx context.Context, client *api.Client, engine, path, key string) (string, error) {
	secret, err := client.KVv2(engine).Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("cannot read secret %s/%s: %w", engine, path, err)
	}

	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSecretKey, key)
	}

	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret key %s is not a string", key)
	}

	return strValue, nil
}
