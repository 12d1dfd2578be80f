package labelsync

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lewtec/labelsync/internal/pipeline"
	"github.com/lewtec/labelsync/internal/roboflow"
	"github.com/lewtec/labelsync/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. LABELSYNC_ROBOFLOW_API_KEY
const EnvPrefix = "LABELSYNC"

var roboflowEnvAliases = map[string]string{
	"roboflow.api_key":   "ROBOFLOW_API_KEY",
	"roboflow.workspace": "ROBOFLOW_WORKSPACE",
}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Roboflow RoboflowConfig `mapstructure:"roboflow" yaml:"roboflow"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// StorageConfig selects and configures the annotation store backend
type StorageConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"` // s3, minio or fs
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
	// Root is the dataset directory for the fs backend
	Root            string        `mapstructure:"root" yaml:"root"`
	AnnotationsFile string        `mapstructure:"annotations_file" yaml:"annotations_file"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RoboflowConfig holds remote platform credentials
type RoboflowConfig struct {
	APIURL          string        `mapstructure:"api_url" yaml:"api_url"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	Workspace       string        `mapstructure:"workspace" yaml:"workspace"`
	Split           string        `mapstructure:"split" yaml:"split"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ProjectCacheTTL time.Duration `mapstructure:"project_cache_ttl" yaml:"project_cache_ttl"`
}

// SyncConfig tunes the sync pipeline
type SyncConfig struct {
	Workers            int           `mapstructure:"workers" yaml:"workers"`
	MaxErrors          int           `mapstructure:"max_errors" yaml:"max_errors"`
	ImageTimeout       time.Duration `mapstructure:"image_timeout" yaml:"image_timeout"`
	ValidateImages     bool          `mapstructure:"validate_images" yaml:"validate_images"`
	DuplicateFileNames string        `mapstructure:"duplicate_file_names" yaml:"duplicate_file_names"` // fail or warn
}

// DatabaseConfig holds run history settings
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend:         storage.BackendS3,
			Region:          "us-east-1",
			UseSSL:          true,
			AnnotationsFile: storage.DefaultAnnotationsFile,
			Timeout:         30 * time.Second,
		},
		Roboflow: RoboflowConfig{
			APIURL:          roboflow.DefaultAPIURL,
			Split:           "train",
			Timeout:         60 * time.Second,
			ProjectCacheTTL: 5 * time.Minute,
		},
		Sync: SyncConfig{
			Workers:            pipeline.DefaultWorkers,
			MaxErrors:          pipeline.DefaultMaxErrors,
			ImageTimeout:       pipeline.DefaultImageTimeout,
			DuplicateFileNames: string(pipeline.DuplicateFail),
		},
		Database: DatabaseConfig{
			Path: ":memory:",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// setDefaults registers every key so environment overrides work without a
// config file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.cors_origins", cfg.Server.CORSOrigins)

	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.bucket", cfg.Storage.Bucket)
	v.SetDefault("storage.region", cfg.Storage.Region)
	v.SetDefault("storage.endpoint", cfg.Storage.Endpoint)
	v.SetDefault("storage.access_key", cfg.Storage.AccessKey)
	v.SetDefault("storage.secret_key", cfg.Storage.SecretKey)
	v.SetDefault("storage.use_ssl", cfg.Storage.UseSSL)
	v.SetDefault("storage.path_style", cfg.Storage.PathStyle)
	v.SetDefault("storage.root", cfg.Storage.Root)
	v.SetDefault("storage.annotations_file", cfg.Storage.AnnotationsFile)
	v.SetDefault("storage.timeout", cfg.Storage.Timeout)

	v.SetDefault("roboflow.api_url", cfg.Roboflow.APIURL)
	v.SetDefault("roboflow.api_key", cfg.Roboflow.APIKey)
	v.SetDefault("roboflow.workspace", cfg.Roboflow.Workspace)
	v.SetDefault("roboflow.split", cfg.Roboflow.Split)
	v.SetDefault("roboflow.timeout", cfg.Roboflow.Timeout)
	v.SetDefault("roboflow.project_cache_ttl", cfg.Roboflow.ProjectCacheTTL)

	v.SetDefault("sync.workers", cfg.Sync.Workers)
	v.SetDefault("sync.max_errors", cfg.Sync.MaxErrors)
	v.SetDefault("sync.image_timeout", cfg.Sync.ImageTimeout)
	v.SetDefault("sync.validate_images", cfg.Sync.ValidateImages)
	v.SetDefault("sync.duplicate_file_names", cfg.Sync.DuplicateFileNames)

	v.SetDefault("database.path", cfg.Database.Path)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// LoadConfig loads configuration from an optional file and the environment.
// An empty filename looks for labelsync.yaml in the working directory.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the roboflow tooling exports these without our prefix
	for key, alias := range roboflowEnvAliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias); err != nil {
			return nil, err
		}
	}

	if filename != "" {
		v.SetConfigFile(filename)
	} else {
		v.SetConfigName("labelsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if filename != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("while reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("while parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1, got %d", c.Sync.Workers)
	}
	if c.Sync.MaxErrors < 1 {
		return fmt.Errorf("sync.max_errors must be at least 1, got %d", c.Sync.MaxErrors)
	}
	if _, err := pipeline.ParseDuplicatePolicy(c.Sync.DuplicateFileNames); err != nil {
		return fmt.Errorf("sync.duplicate_file_names: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}
	return nil
}

// ValidateStorage checks the storage section. Commands that never touch the
// store, like migrate, skip it.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Backend {
	case storage.BackendS3, storage.BackendMinio:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the %s backend", c.Storage.Backend)
		}
	case storage.BackendFS:
		if c.Storage.Root == "" {
			return fmt.Errorf("storage.root is required for the fs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of s3, minio, fs", c.Storage.Backend)
	}
	if c.Storage.Backend == storage.BackendMinio && c.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required for the minio backend")
	}
	return nil
}

// StorageOptions translates the storage section for storage.Open
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{
		Backend:   c.Storage.Backend,
		Bucket:    c.Storage.Bucket,
		Region:    c.Storage.Region,
		Endpoint:  c.Storage.Endpoint,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		UseSSL:    c.Storage.UseSSL,
		PathStyle: c.Storage.PathStyle,
		Root:      c.Storage.Root,
		Timeout:   c.Storage.Timeout,
	}
}

// WriteSampleConfig writes cfg as YAML, refusing to overwrite a file
func WriteSampleConfig(filename string, cfg *Config) error {
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("config file already exists: %s", filename)
	}
	node, err := sampleNode(reflect.ValueOf(cfg).Elem())
	if err != nil {
		return fmt.Errorf("while encoding config: %w", err)
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("while encoding config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("while writing config file: %w", err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// sampleNode encodes v like yaml.Marshal but writes durations as "30s"
// instead of nanoseconds, keeping field order
func sampleNode(v reflect.Value) (*yaml.Node, error) {
	if v.Type() == durationType {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Interface().(time.Duration).String()}, nil
	}
	if v.Kind() != reflect.Struct {
		var node yaml.Node
		if err := node.Encode(v.Interface()); err != nil {
			return nil, err
		}
		return &node, nil
	}
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		value, err := sampleNode(v.Field(i))
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, value)
	}
	return node, nil
}
