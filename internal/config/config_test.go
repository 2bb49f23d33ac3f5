package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Server:  ServerConfig{Port: 8080, ShutdownTimeout: time.Second, RequestTimeout: time.Second},
		Dataset: DatasetConfig{DataDir: t.TempDir(), MaxFileSize: 1024},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Set only required env var
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want %v", cfg.Server.ShutdownTimeout, 10*time.Second)
	}
	if cfg.Dataset.DataDir != dir {
		t.Errorf("Dataset.DataDir = %q, want %q", cfg.Dataset.DataDir, dir)
	}
	if cfg.Dataset.MaxFileSize != 104857600 {
		t.Errorf("Dataset.MaxFileSize = %d, want %d", cfg.Dataset.MaxFileSize, 104857600)
	}
	if len(cfg.Dataset.DisplayColumns) != 5 || cfg.Dataset.DisplayColumns[2] != "Último UM pedido" {
		t.Errorf("Dataset.DisplayColumns = %q", cfg.Dataset.DisplayColumns)
	}
	if !cfg.Dataset.Watch {
		t.Error("Dataset.Watch = false, want true")
	}
	if cfg.Rate.RequestsPerMinute != 120 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 120)
	}
	if cfg.Security.RequireAPIKey {
		t.Error("Security.RequireAPIKey should default to false")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATASET_MAX_FILE_SIZE", "2048")
	t.Setenv("DATASET_INITIAL_FILE", "fornecedores.csv")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Dataset.MaxFileSize != 2048 {
		t.Errorf("Dataset.MaxFileSize = %d, want %d", cfg.Dataset.MaxFileSize, 2048)
	}
	if cfg.Dataset.InitialFile != "fornecedores.csv" {
		t.Errorf("Dataset.InitialFile = %q, want %q", cfg.Dataset.InitialFile, "fornecedores.csv")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", "")
	t.Setenv("SUPPLIERS_DATA_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Dataset.DataDir != dir {
		t.Errorf("Dataset.DataDir = %q, want %q", cfg.Dataset.DataDir, dir)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("SUPPLIERS_DATA_DIR", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing DATA_DIR")
	}
	if !strings.Contains(err.Error(), "DATA_DIR") {
		t.Errorf("error should mention DATA_DIR: %v", err)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("SERVER_PORT", "eighty")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for non-numeric SERVER_PORT")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("error should mention SERVER_PORT: %v", err)
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("SERVER_READ_TIMEOUT", "45s")
	t.Setenv("SERVER_REQUEST_TIMEOUT", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Server.RequestTimeout != 90*time.Second {
		t.Errorf("Server.RequestTimeout = %v, want %v", cfg.Server.RequestTimeout, 90*time.Second)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16")
	t.Setenv("DISPLAY_COLUMNS", "Material,,Primeiro Fornecedor")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}

	cols := cfg.Dataset.DisplayColumns
	if len(cols) != 2 || cols[0] != "Material" || cols[1] != "Primeiro Fornecedor" {
		t.Errorf("DisplayColumns = %q, want [Material Primeiro Fornecedor]", cols)
	}
}

func TestLoadLogging_DoesNotRequireDataDir(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("SUPPLIERS_DATA_DIR", "")
	t.Setenv("LOG_FORMAT", "json")

	lc, err := LoadLogging()
	if err != nil {
		t.Fatalf("LoadLogging() error = %v", err)
	}
	if lc.Level != "info" || lc.Format != "json" {
		t.Errorf("LoadLogging() = %+v, want level info, format json", lc)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // empty means valid
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 99999 },
			wantErr: "SERVER_PORT",
		},
		{
			name:    "missing data dir",
			mutate:  func(c *Config) { c.Dataset.DataDir = "" },
			wantErr: "DATA_DIR",
		},
		{
			name:    "data dir does not exist",
			mutate:  func(c *Config) { c.Dataset.DataDir = filepath.Join(c.Dataset.DataDir, "missing") },
			wantErr: "not accessible",
		},
		{
			name: "data dir is a file",
			mutate: func(c *Config) {
				f := filepath.Join(c.Dataset.DataDir, "file.csv")
				_ = os.WriteFile(f, []byte("a\n"), 0o644)
				c.Dataset.DataDir = f
			},
			wantErr: "not a directory",
		},
		{
			name:    "zero max file size",
			mutate:  func(c *Config) { c.Dataset.MaxFileSize = 0 },
			wantErr: "DATASET_MAX_FILE_SIZE",
		},
		{
			name:    "initial file outside data dir",
			mutate:  func(c *Config) { c.Dataset.InitialFile = "../etc/passwd.csv" },
			wantErr: "DATASET_INITIAL_FILE",
		},
		{
			name:    "initial file not csv",
			mutate:  func(c *Config) { c.Dataset.InitialFile = "notes.txt" },
			wantErr: ".csv",
		},
		{
			name:    "rate limit enabled without budget",
			mutate:  func(c *Config) { c.Rate.RequestsPerMinute = 0 },
			wantErr: "RATE_LIMIT_REQUESTS_PER_MINUTE",
		},
		{
			name:   "rate limit disabled without budget",
			mutate: func(c *Config) { c.Rate.Enabled = false; c.Rate.RequestsPerMinute = 0 },
		},
		{
			name:    "api key required without keys",
			mutate:  func(c *Config) { c.Security.RequireAPIKey = true },
			wantErr: "API_KEYS",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Port = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"localhost", 443, "localhost:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		got := cfg.Addr()
		if got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_MasksAPIKeys(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{RequireAPIKey: true, APIKeys: []string{"super-secret-key"}},
	}
	str := cfg.String()
	if strings.Contains(str, "super-secret-key") {
		t.Error("String() should mask API keys")
	}
	if !strings.Contains(str, "MASKED") {
		t.Error("String() should contain MASKED placeholder")
	}
}

func TestLoggingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		lc      LoggingConfig
		wantErr bool
	}{
		{name: "defaults", lc: LoggingConfig{Level: "info", Format: "text"}},
		{name: "upper case", lc: LoggingConfig{Level: "DEBUG", Format: "JSON"}},
		{name: "bad level", lc: LoggingConfig{Level: "loud", Format: "text"}, wantErr: true},
		{name: "bad format", lc: LoggingConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
