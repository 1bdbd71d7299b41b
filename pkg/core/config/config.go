// SPDX-FileCopyrightText: 2026 The tenantctl contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package config provides the tenantctl configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// ErrNoConfigVersion error is returned when the configuration does not specify
// a config format version.
var ErrNoConfigVersion = errors.New("config format version not specified")

// ErrUnsupportedVersion is an error, which is returned when the config file
// uses an incompatible version format.
var ErrUnsupportedVersion = errors.New("unsupported config format version")

// ConfigFormatVersion represents the supported config format version.
const ConfigFormatVersion = "v1alpha1"

// DefaultQueueName is the name of the default queue.
const DefaultQueueName = "default"

const (
	// GraphAuthenticationMethodDefault specifies that Graph API clients
	// will authenticate using the default Azure credential chain.
	GraphAuthenticationMethodDefault = "default"

	// GraphAuthenticationMethodClientSecret specifies that Graph API
	// clients will authenticate using a client id/secret pair from the
	// config file.
	GraphAuthenticationMethodClientSecret = "client_secret"

	// GraphAuthenticationMethodClientSecretVault specifies that Graph API
	// clients will authenticate using a client secret fetched from a Vault
	// KV-v2 secret engine.
	GraphAuthenticationMethodClientSecretVault = "client_secret_vault"

	// GraphAuthenticationMethodWorkloadIdentity specifies that Graph API
	// clients will authenticate using Workload Identity Federation.
	GraphAuthenticationMethodWorkloadIdentity = "workload_identity"
)

// Config represents the tenantctl configuration.
type Config struct {
	// Version is the version of the config file.
	Version string `yaml:"version"`

	// Debug configures debug mode, if set to true.
	Debug bool `yaml:"debug"`

	// Logging provides the logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Redis provides the Redis configuration.
	Redis RedisConfig `yaml:"redis"`

	// Database provides the database configuration.
	Database DatabaseConfig `yaml:"database"`

	// Worker provides the worker configuration.
	Worker WorkerConfig `yaml:"worker"`

	// Scheduler provides the scheduler configuration.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Metrics provides the metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Dashboard provides the dashboard configuration.
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Vault provides the Vault configuration.
	Vault VaultConfig `yaml:"vault"`

	// Graph provides the Microsoft Graph configuration.
	Graph GraphConfig `yaml:"graph"`

	// Reports provides the report rendering configuration.
	Reports ReportsConfig `yaml:"reports"`

	// Batch provides the default settings for the batch processor.
	Batch BatchConfig `yaml:"batch"`
}

// LoggingConfig provides logging related configuration settings.
type LoggingConfig struct {
	// Level specifies the log level to use: info, warn, error or debug.
	Level string `yaml:"level"`

	// Format specifies the log format: text or json.
	Format string `yaml:"format"`

	// AddSource adds the source location to each log event, if set.
	AddSource bool `yaml:"add_source"`

	// Attributes specifies default attributes added to each log event.
	Attributes map[string]any `yaml:"attributes"`
}

// RedisConfig provides Redis specific configuration settings.
type RedisConfig struct {
	// Endpoint is the endpoint of the Redis service.
	Endpoint string `yaml:"endpoint"`
}

// DatabaseConfig provides database specific configuration settings.
type DatabaseConfig struct {
	// DSN is the Data Source Name to connect to.
	DSN string `yaml:"dsn"`

	// MigrationDirectory specifies an alternate location with migration
	// files.
	MigrationDirectory string `yaml:"migration_dir"`
}

// WorkerConfig provides worker specific configuration settings.
type WorkerConfig struct {
	// Concurrency specifies the concurrency level for workers.
	Concurrency int `yaml:"concurrency"`

	// Queues specifies the queues from which the worker consumes, along
	// with their priorities.
	Queues map[string]int `yaml:"queues"`

	// StrictPriority configures strict queue priority, if set.
	StrictPriority bool `yaml:"strict_priority"`
}

// PeriodicJobConfig represents a periodic job from the config file.
type PeriodicJobConfig struct {
	// Name is the name of the task, which will be enqueued.
	Name string `yaml:"name"`

	// Spec is the cron spec for the job.
	Spec string `yaml:"spec"`

	// Desc is an optional description of the job.
	Desc string `yaml:"desc"`

	// Payload is an optional payload for the task.
	Payload string `yaml:"payload"`

	// Queue is the name of the queue to which the task will be enqueued.
	Queue string `yaml:"queue"`
}

// SchedulerConfig provides scheduler specific configuration settings.
type SchedulerConfig struct {
	// DefaultQueue is the queue used for tasks, which do not specify a
	// queue on their own.
	DefaultQueue string `yaml:"default_queue"`

	// Jobs is the list of periodic jobs.
	Jobs []*PeriodicJobConfig `yaml:"jobs"`
}

// MetricsConfig provides metrics related configuration settings.
type MetricsConfig struct {
	// Address is the network address on which the metrics HTTP server
	// listens.
	Address string `yaml:"address"`

	// Path is the HTTP path on which metrics are exposed.
	Path string `yaml:"path"`
}

// DashboardConfig provides dashboard related configuration settings.
type DashboardConfig struct {
	// Address is the network address on which the dashboard UI listens.
	Address string `yaml:"address"`

	// ReadOnly configures the dashboard in read-only mode, if set.
	ReadOnly bool `yaml:"read_only"`

	// PrometheusEndpoint specifies the Prometheus endpoint from which the
	// dashboard reads queue metrics.
	PrometheusEndpoint string `yaml:"prometheus_endpoint"`
}

// VaultConfig provides Vault specific configuration settings.
type VaultConfig struct {
	// IsEnabled specifies whether a Vault client will be configured.
	IsEnabled bool `yaml:"is_enabled"`

	// Endpoint is the address of the Vault service.
	Endpoint string `yaml:"endpoint"`

	// Token is a static Vault token to authenticate with.
	Token string `yaml:"token"`

	// TokenFile is a path to a file containing a Vault token.
	TokenFile string `yaml:"token_file"`
}

// GraphClientSecretConfig provides the settings for client id/secret
// authentication against Microsoft Entra ID.
type GraphClientSecretConfig struct {
	// TenantID is the Entra ID tenant in which the app registration lives.
	TenantID string `yaml:"tenant_id"`

	// ClientID is the application (client) id.
	ClientID string `yaml:"client_id"`

	// ClientSecret is the client secret value.
	ClientSecret string `yaml:"client_secret"`
}

// GraphClientSecretVaultConfig provides the settings for client id/secret
// authentication, where the secret is read from a Vault KV-v2 secret engine.
type GraphClientSecretVaultConfig struct {
	// TenantID is the Entra ID tenant in which the app registration lives.
	TenantID string `yaml:"tenant_id"`

	// ClientID is the application (client) id.
	ClientID string `yaml:"client_id"`

	// SecretEngine is the mount path of the KV-v2 secret engine.
	SecretEngine string `yaml:"secret_engine"`

	// SecretPath is the path to the secret within the secret engine.
	SecretPath string `yaml:"secret_path"`

	// SecretKey is the key within the secret data, which contains the
	// client secret. Defaults to "client_secret".
	SecretKey string `yaml:"secret_key"`
}

// GraphWorkloadIdentityConfig provides the settings for Workload Identity
// Federation authentication.
type GraphWorkloadIdentityConfig struct {
	// TenantID is the Entra ID tenant in which the app registration lives.
	TenantID string `yaml:"tenant_id"`

	// ClientID is the application (client) id.
	ClientID string `yaml:"client_id"`

	// TokenFile is the path to the projected service account token file.
	TokenFile string `yaml:"token_file"`
}

// GraphCredentialsConfig represents named credentials for accessing the
// Microsoft Graph API.
type GraphCredentialsConfig struct {
	// Authentication specifies the authentication method to use.
	Authentication string `yaml:"authentication"`

	// ClientSecret provides the settings when using the client_secret
	// authentication method.
	ClientSecret GraphClientSecretConfig `yaml:"client_secret"`

	// ClientSecretVault provides the settings when using the
	// client_secret_vault authentication method.
	ClientSecretVault GraphClientSecretVaultConfig `yaml:"client_secret_vault"`

	// WorkloadIdentity provides the settings when using the
	// workload_identity authentication method.
	WorkloadIdentity GraphWorkloadIdentityConfig `yaml:"workload_identity"`
}

// GraphTenantConfig binds a Microsoft 365 tenant to named credentials.
type GraphTenantConfig struct {
	// TenantID is the id of the tenant.
	TenantID string `yaml:"tenant_id"`

	// Name is a friendly name for the tenant.
	Name string `yaml:"name"`

	// UseCredentials is the name of the credentials used when accessing
	// this tenant.
	UseCredentials string `yaml:"use_credentials"`
}

// GraphConfig provides Microsoft Graph specific configuration settings.
type GraphConfig struct {
	// IsEnabled specifies whether Graph API clients will be configured.
	IsEnabled bool `yaml:"is_enabled"`

	// Credentials provides the named credentials.
	Credentials map[string]GraphCredentialsConfig `yaml:"credentials"`

	// Tenants is the list of tenants against which tasks operate.
	Tenants []*GraphTenantConfig `yaml:"tenants"`
}

// ReportsMailConfig provides the settings for report delivery via mail.
type ReportsMailConfig struct {
	// From is the user principal name of the sending mailbox.
	From string `yaml:"from"`

	// To is the list of default recipients.
	To []string `yaml:"to"`
}

// ReportsConfig provides report rendering configuration settings.
type ReportsConfig struct {
	// Directory is the directory in which rendered reports are stored.
	Directory string `yaml:"directory"`

	// Formats is the list of default output formats: csv, json or html.
	Formats []string `yaml:"formats"`

	// Mail provides the settings for report delivery via mail.
	Mail ReportsMailConfig `yaml:"mail"`
}

// BatchConfig provides the default settings for the batch processor.
type BatchConfig struct {
	// ChunkSize is the number of items per chunk.
	ChunkSize int `yaml:"chunk_size"`

	// Concurrency is the number of items from a chunk, which are processed
	// concurrently.
	Concurrency int `yaml:"concurrency"`

	// ChunkDelay is the fixed delay inserted between chunks.
	ChunkDelay time.Duration `yaml:"chunk_delay"`
}

// Parse parses the config from the given path.
func Parse(path string) (*Config, error) {
	var conf Config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, err
	}

	if conf.Version == "" {
		return nil, ErrNoConfigVersion
	}

	if conf.Version != ConfigFormatVersion {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, conf.Version)
	}

	return &conf, nil
}

// MustParse parses the config from the given path, or panics in case of
// errors.
func MustParse(path string) *Config {
	config, err := Parse(path)
	if err != nil {
		panic(err)
	}

	return config
}
