package model

import "time"

const (
	DefaultNetBoxTimeout     = 30 * time.Second
	DefaultNetBoxMaxRetries  = 3
	DefaultDevicePort        = 22
	DefaultDeviceTimeout     = 30 * time.Second
	DefaultConnectAttempts   = 3
	DefaultSNMPPort          = 161
	DefaultKVBucket          = "netsync-proposals"
	DefaultKVReplicas        = 1
	DefaultNATSConnectTimout = 60 * time.Second
)

// Config holds application configuration read from a YAML or set by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Config struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// RulesFile is the path to the classification rules YAML.
	RulesFile string `mapstructure:"rules_file"`

	// ProposalsDir is the directory dry-run proposal documents are written to.
	ProposalsDir string `mapstructure:"proposals_dir"`

	NetBox  NetBoxOptions  `mapstructure:"netbox"`
	Device  DeviceOptions  `mapstructure:"device"`
	NATS    NATSOptions    `mapstructure:"nats"`
	Metrics MetricsOptions `mapstructure:"metrics"`
}

// NetBoxOptions configures the inventory API client.
type NetBoxOptions struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
	// TokenEnv names the environment variable looked up before Token.
	TokenEnv         string        `mapstructure:"token_env"`
	VerifyTLS        bool          `mapstructure:"verify_tls"`
	DeviceNameSuffix string        `mapstructure:"device_name_suffix"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
}

// DeviceOptions configures the device transport.
type DeviceOptions struct {
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Port            int           `mapstructure:"port"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	Timeout         time.Duration `mapstructure:"timeout"`
	// SocksProxy is an optional host:port of a SOCKS5 jump host.
	SocksProxy    string `mapstructure:"socks_proxy"`
	SNMPCommunity string `mapstructure:"snmp_community"`
	SNMPPort      int    `mapstructure:"snmp_port"`
}

// NATSOptions configures the optional proposal KV publisher.
type NATSOptions struct {
	URL        string `mapstructure:"url"`
	CredsFile  string `mapstructure:"creds_file"`
	KVBucket   string `mapstructure:"kv_bucket"`
	KVReplicas int    `mapstructure:"kv_replicas"`
}

// MetricsOptions configures the prometheus endpoint, it is served only when ListenAddress is set.
type MetricsOptions struct {
	ListenAddress string `mapstructure:"listen_address"`
}

// DefaultConfig returns the configuration with default values set.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		ProposalsDir: DefaultProposalsDir,
		NetBox: NetBoxOptions{
			TokenEnv:   DefaultTokenEnv,
			VerifyTLS:  true,
			Timeout:    DefaultNetBoxTimeout,
			MaxRetries: DefaultNetBoxMaxRetries,
		},
		Device: DeviceOptions{
			Port:            DefaultDevicePort,
			ConnectAttempts: DefaultConnectAttempts,
			Timeout:         DefaultDeviceTimeout,
			SNMPCommunity:   "public",
			SNMPPort:        DefaultSNMPPort,
		},
		NATS: NATSOptions{
			KVBucket:   DefaultKVBucket,
			KVReplicas: DefaultKVReplicas,
		},
	}
}
