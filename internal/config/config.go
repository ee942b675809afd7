package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for sv.
type Config struct {
	BaseDir       string              `toml:"base_dir"`
	LogDir        string              `toml:"log_dir"`
	Store         StoreConfig         `toml:"store"`
	Vault         VaultConfig         `toml:"vault"`
	Database      DatabaseConfig      `toml:"database"`
	KeyProtection KeyProtectionConfig `toml:"key_protection"`
	Identity      IdentityConfig      `toml:"identity"`
	Filesystem    FilesystemConfig    `toml:"filesystem"`
}

// StoreConfig holds object store behaviour.
type StoreConfig struct {
	Cipher string `toml:"cipher"` // "aes-256-gcm" (default) or "chacha20-poly1305"
	Erase  bool   `toml:"erase"`  // overwrite ciphertext and scrub db pages on delete
	Audit  bool   `toml:"audit"`  // record every operation in the history table
}

// VaultConfig represents configuration for the blob store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // e.g. a MinIO server
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "postgres"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	DSN     string `toml:"dsn,omitempty"`      // only used for type=postgres
}

// KeyProtectionConfig selects how object keys are sealed at rest.
type KeyProtectionConfig struct {
	Type           string `toml:"type"` // "age" (default), "plain" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// IdentityConfig selects which caller identities are accepted.
type IdentityConfig struct {
	Type    string `toml:"type"`              // "any" (default), "aptos" or "pattern"
	Pattern string `toml:"pattern,omitempty"` // only used for type=pattern
}

// FilesystemConfig holds settings for collecting files to upload.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store:   StoreConfig{Cipher: "aes-256-gcm", Audit: true},
		Vault: VaultConfig{
			Type:        "filesystem",
			Name:        "local",
			FSVaultRoot: filepath.Join(baseDir, "vault"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		KeyProtection: KeyProtectionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "sv.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "sv.key"),
		},
		Identity: IdentityConfig{Type: "any"},
	}
}

// Validate reports every field that no backend would accept.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unsupported value %q", field, value))
		}
	}
	check("store.cipher", c.Store.Cipher, "", "aes-256-gcm", "chacha20-poly1305")
	check("vault.type", c.Vault.Type, "memory", "filesystem", "s3")
	check("database.type", c.Database.Type, "memory", "sqlite", "postgres")
	check("key_protection.type", c.KeyProtection.Type, "", "age", "plain", "test")
	check("identity.type", c.Identity.Type, "", "any", "aptos", "pattern")

	if c.Vault.Type == "s3" && c.Vault.S3Bucket == "" {
		errs = append(errs, errors.New("vault.s3_bucket: required for s3 vault"))
	}
	if c.Database.Type == "postgres" && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn: required for postgres"))
	}
	if c.Identity.Type == "pattern" && c.Identity.Pattern == "" {
		errs = append(errs, errors.New("identity.pattern: required for pattern identities"))
	}
	return errors.Join(errs...)
}

// Decode parses TOML from r.
func Decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Encode writes cfg to w as TOML.
func Encode(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to path. It refuses to replace an existing file.
func Init(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// 0600: the file may hold S3 credentials or a postgres password.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	if err := Encode(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
