package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Vision        VisionConfig  `mapstructure:"vision" yaml:"vision"`
	Storage       StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	SessionCookie   string `mapstructure:"session_cookie" yaml:"session_cookie"`
	SessionTTLHours int    `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	BasePath        string `mapstructure:"base_path" yaml:"base_path"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr        string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
	UploadDir   string `mapstructure:"upload_dir" yaml:"upload_dir"`
}

// VisionConfig configures the upstream vision provider.
type VisionConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Model          string `mapstructure:"model" yaml:"model"`
	MaxTokens      int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// StorageConfig selects and locates the save sinks.
type StorageConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	FileDir    string `mapstructure:"file_dir" yaml:"file_dir"`
	ExportDir  string `mapstructure:"export_dir" yaml:"export_dir"`
}

// LoggingConfig controls the optional rotating log file.
type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	root := filepath.Join(home, ".tabforge")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(root, "state"),
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:27490",
			SessionCookie:   "tabforge_session",
			SessionTTLHours: 24,
			BaseURL:         "",
			BasePath:        "",
			MaxUploadMB:     10,
		},
		SSH: SSHConfig{
			Enabled:     false,
			Addr:        "127.0.0.1:27422",
			HostKeyPath: filepath.Join(root, "ssh_host_key"),
			UploadDir:   filepath.Join(root, "uploads"),
		},
		Vision: VisionConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o",
			MaxTokens:      300,
			TimeoutSeconds: 60,
		},
		Storage: StorageConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(root, "state", "local.sqlite"),
			FileDir:    filepath.Join(root, "state", "local"),
			ExportDir:  filepath.Join(root, "exports"),
		},
		Logging: LoggingConfig{
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabforge", "config.yaml"), nil
}
