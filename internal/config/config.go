package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Env vars carrying secrets that must not live in the config file.
const (
	EnvSessionSecret     = "CASEDESK_SESSION_SECRET"
	EnvTeamPasscode      = "CASEDESK_TEAM_PASSCODE"
	EnvOAuthClientSecret = "CASEDESK_OAUTH_CLIENT_SECRET"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Auth        AuthConfig                `json:"auth"`
	AWS         AWSConfig                 `json:"aws"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	TeamID        string `json:"team_id"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Disabled bool   `json:"disabled"`
}

// AuthConfig selects the identity strategy. When OAuthClientID and
// AllowedDomain are both set the federated path is active and the
// passcode path is disabled entirely; otherwise the passcode path runs.
type AuthConfig struct {
	AllowedDomain     string `json:"allowed_domain"`
	OAuthClientID     string `json:"oauth_client_id"`
	OAuthRedirectURL  string `json:"oauth_redirect_url"`
	DefaultMemberName string `json:"default_member_name"`
}

type AWSConfig struct {
	Region   string `json:"region"`
	S3Bucket string `json:"s3_bucket"`
	QueueURL string `json:"queue_url"`
}

// AuthMode is the identity strategy decided once at startup.
type AuthMode int

const (
	ModePasscode AuthMode = iota
	ModeFederated
)

// Mode reports which identity strategy this deployment runs.
func (a AuthConfig) Mode() AuthMode {
	if a.OAuthClientID != "" && a.AllowedDomain != "" {
		return ModeFederated
	}
	return ModePasscode
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.BasicConfig.TeamID == "" {
		return nil, fmt.Errorf("team_id must be configured")
	}
	if cfg.Auth.DefaultMemberName == "" {
		cfg.Auth.DefaultMemberName = "member"
	}

	for name, db := range cfg.Databases {
		if db.DSN != "" && !filepath.IsAbs(db.DSN) && !strings.Contains(db.DSN, ":memory:") {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}

	return &cfg, nil
}

// SessionSecret reads the token signing secret from the environment.
func SessionSecret() (string, error) {
	secret := strings.TrimSpace(os.Getenv(EnvSessionSecret))
	if secret == "" {
		return "", fmt.Errorf("%s not set", EnvSessionSecret)
	}
	return secret, nil
}

// TeamPasscode reads the shared team passcode from the environment.
func TeamPasscode() (string, error) {
	passcode := strings.TrimSpace(os.Getenv(EnvTeamPasscode))
	if passcode == "" {
		return "", fmt.Errorf("%s not set", EnvTeamPasscode)
	}
	return passcode, nil
}

// OAuthClientSecret reads the federated client secret from the environment.
func OAuthClientSecret() (string, error) {
	secret := strings.TrimSpace(os.Getenv(EnvOAuthClientSecret))
	if secret == "" {
		return "", fmt.Errorf("%s not set", EnvOAuthClientSecret)
	}
	return secret, nil
}
