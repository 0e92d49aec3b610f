package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Env variables overriding the corresponding file values. Secrets should
// come from here rather than from the config file on disk.
const (
	EnvConfigPath = "SENTRY_CONFIG_PATH"
	EnvAPIKey     = "AI_API_KEY"
	EnvJWTSecret  = "JWT_SECRET"
)

type Server struct {
	ListenAddress string `yaml:"listenAddress"`
	TLSCertFile   string `yaml:"tlsCertFile"`
	TLSKeyFile    string `yaml:"tlsKeyFile"`
	// TrustedProxies are the IPs/CIDRs allowed to set forwarding headers
	// (e.g. ["10.0.0.0/8", "127.0.0.1"]). Passed to gin's proxy handling.
	TrustedProxies []string `yaml:"trustedProxies"`
	// CORSOrigins lists the allowed browser origins for the dashboard.
	CORSOrigins []string `yaml:"corsOrigins"`
}

type Database struct {
	// Driver selects the storage backend: "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Security struct {
	// APIKey is the shared credential the detection service presents.
	// Overridden by the AI_API_KEY environment variable.
	APIKey string `yaml:"apiKey"`
	// StrictSecrets makes placeholder or malformed secrets fatal at
	// startup instead of logged warnings.
	StrictSecrets bool `yaml:"strictSecrets"`

	MaxRequestsPerMinute int `yaml:"maxRequestsPerMinute"`
	// RateWindowSeconds is the length of one fixed rate-counting window.
	RateWindowSeconds int `yaml:"rateWindowSeconds"`
	MaxFailedAttempts int `yaml:"maxFailedAttempts"`
	// FailedAttemptTTLMinutes is how long a failed-attempt streak is
	// remembered before it resets on its own.
	FailedAttemptTTLMinutes int `yaml:"failedAttemptTTLMinutes"`
	BlockDurationMinutes    int `yaml:"blockDurationMinutes"`
	// ProtectedPathPrefixes scopes the abuse gate. Defaults to the alert
	// ingestion API.
	ProtectedPathPrefixes []string `yaml:"protectedPathPrefixes"`
}

type JWT struct {
	// Secret signs dashboard session tokens. Overridden by the JWT_SECRET
	// environment variable.
	Secret            string `yaml:"secret"`
	ExpirationMinutes int    `yaml:"expirationMinutes"`
}

type Audit struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Admin struct {
	// Username and Password seed the initial dashboard administrator when
	// the user table is empty.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Security Security `yaml:"security"`
	JWT      JWT      `yaml:"jwt"`
	Audit    Audit    `yaml:"audit"`
	Admin    Admin    `yaml:"admin"`
}

// Load loads the server configuration from a file path.
// If configPath is empty, the SENTRY_CONFIG_PATH environment variable is
// consulted, then "./config.yaml". Secret values are overridden from the
// environment after the file is parsed.
func Load(configPath ...string) (Config, error) {
	var path string

	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	} else if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	} else {
		path = "./config.yaml"
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open sentry config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()
	return config, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Security.APIKey = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.JWT.Secret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "sentry.db"
	}
	if c.Security.MaxRequestsPerMinute == 0 {
		c.Security.MaxRequestsPerMinute = 30
	}
	if c.Security.RateWindowSeconds == 0 {
		c.Security.RateWindowSeconds = 60
	}
	if c.Security.MaxFailedAttempts == 0 {
		c.Security.MaxFailedAttempts = 5
	}
	if c.Security.FailedAttemptTTLMinutes == 0 {
		c.Security.FailedAttemptTTLMinutes = 15
	}
	if c.Security.BlockDurationMinutes == 0 {
		c.Security.BlockDurationMinutes = 30
	}
	if len(c.Security.ProtectedPathPrefixes) == 0 {
		c.Security.ProtectedPathPrefixes = []string{"/api/v1/alerts"}
	}
	if c.JWT.ExpirationMinutes == 0 {
		c.JWT.ExpirationMinutes = 24 * 60
	}
	if c.Audit.Topic == "" {
		c.Audit.Topic = "sentry.security.audit"
	}
	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
}
