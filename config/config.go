package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// config/config.go
type User struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

type AuthConfig struct {
	Users []User `yaml:"users" json:"users"`
}

type Backup struct {
	Provider string `yaml:"provider" json:"provider"` // "aws", "gcp" or "azure"
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	// OnOptimize mirrors each manifest's variants right after a queued job finishes
	OnOptimize bool   `yaml:"onOptimize" json:"onOptimize"`
	Prefix     string `yaml:"prefix" json:"prefix"`
	GCP        struct {
		Bucket    string `yaml:"bucket" json:"bucket"`
		ProjectID string `yaml:"projectID" json:"projectID"`
	} `yaml:"gcp" json:"gcp"`
	AWS struct {
		Bucket string `yaml:"bucket" json:"bucket"`
		Region string `yaml:"region" json:"region"`
	} `yaml:"aws" json:"aws"`
	Azure struct {
		StorageAccount string `yaml:"storageAccount" json:"storageAccount"`
		Container      string `yaml:"container" json:"container"`
	} `yaml:"azure" json:"azure"`
}

// CacheConfig sizes the shared in-memory TTL cache
type CacheConfig struct {
	MaxSize              int `yaml:"maxSize" json:"maxSize"`
	DefaultTTLSeconds    int `yaml:"defaultTTLSeconds" json:"defaultTTLSeconds"`
	SweepIntervalSeconds int `yaml:"sweepIntervalSeconds" json:"sweepIntervalSeconds"`
}

// ImagesConfig drives the variant pipeline
type ImagesConfig struct {
	PublicPrefix string `yaml:"publicPrefix" json:"publicPrefix"`
	MaxDimension int    `yaml:"maxDimension" json:"maxDimension"`
	MaxUploadMB  int    `yaml:"maxUploadMB" json:"maxUploadMB"`
	Atomic       bool   `yaml:"atomic" json:"atomic"`
	Workers      int    `yaml:"workers" json:"workers"`
}

// QueueConfig selects where background optimize jobs are queued
type QueueConfig struct {
	Driver   string `yaml:"driver" json:"driver"` // "memory" or "redis"
	RedisURL string `yaml:"redisURL" json:"-"`
	Key      string `yaml:"key" json:"key"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}

// GCConfig controls the cleanup of abandoned staging dirs and uploads
type GCConfig struct {
	MaxAgeMinutes int `yaml:"maxAgeMinutes" json:"maxAgeMinutes"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port" json:"port"`
	} `yaml:"server" json:"server"`

	Storage struct {
		Path      string `yaml:"path" json:"path"`
		MaxSizeGB int    `yaml:"maxSizeGB" json:"maxSizeGB"`
	} `yaml:"storage" json:"storage"`

	Logging struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
		File   string `yaml:"file" json:"file"`
	} `yaml:"logging" json:"logging"`

	Cache  CacheConfig  `yaml:"cache" json:"cache"`
	Images ImagesConfig `yaml:"images" json:"images"`
	Queue  QueueConfig  `yaml:"queue" json:"queue"`
	GC     GCConfig     `yaml:"gc" json:"gc"`
	Auth   AuthConfig   `yaml:"auth" json:"auth"`
	Backup Backup       `yaml:"backup" json:"backup"`
}

type Secrets struct {
	// AWS credentials
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// GCP credentials
	GCPCredentialsFile string

	// Azure credentials
	AzureStorageAccountKey string
}

// Default returns a configuration that runs without a config file
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig loads the YAML file, then environment overrides, then defaults
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("❌ error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("❌ error parsing config: %w", err)
	}

	loadConfigFromEnv(config)
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigFromEnv builds a configuration from environment variables only
func LoadConfigFromEnv() (*Config, error) {
	config := &Config{}
	loadConfigFromEnv(config)
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyDefaults fills every unset field with its reference value
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3030
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./data"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Cache.DefaultTTLSeconds <= 0 {
		c.Cache.DefaultTTLSeconds = 300
	}
	if c.Cache.SweepIntervalSeconds <= 0 {
		c.Cache.SweepIntervalSeconds = 300
	}
	if c.Images.PublicPrefix == "" {
		c.Images.PublicPrefix = "/uploads/images"
	}
	if c.Images.MaxDimension <= 0 {
		c.Images.MaxDimension = 4000
	}
	if c.Images.MaxUploadMB <= 0 {
		c.Images.MaxUploadMB = 25
	}
	if c.Images.Workers <= 0 {
		c.Images.Workers = 2
	}
	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}
	if c.Queue.Key == "" {
		c.Queue.Key = "imgvault:jobs"
	}
	if c.Queue.Capacity <= 0 {
		c.Queue.Capacity = 100
	}
	if c.GC.MaxAgeMinutes <= 0 {
		c.GC.MaxAgeMinutes = 60
	}
	if c.Backup.Prefix == "" {
		c.Backup.Prefix = "images/"
	}
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	switch c.Queue.Driver {
	case "memory":
	case "redis":
		if c.Queue.RedisURL == "" {
			return fmt.Errorf("❌ queue driver redis requires queue.redisURL")
		}
	default:
		return fmt.Errorf("❌ unknown queue driver %q", c.Queue.Driver)
	}
	if c.Backup.Enabled {
		switch c.Backup.Provider {
		case "aws", "gcp", "azure":
		default:
			return fmt.Errorf("❌ unknown backup provider %q", c.Backup.Provider)
		}
	}
	return nil
}

// CacheDefaultTTL is the default entry lifetime as a duration
func (c *Config) CacheDefaultTTL() time.Duration {
	return time.Duration(c.Cache.DefaultTTLSeconds) * time.Second
}

// CacheSweepInterval is the background sweep period as a duration
func (c *Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSeconds) * time.Second
}

// GCMaxAge is how old a staging dir or upload must be before GC removes it
func (c *Config) GCMaxAge() time.Duration {
	return time.Duration(c.GC.MaxAgeMinutes) * time.Minute
}

// Charge les configurations depuis les variables d'environnement
func loadConfigFromEnv(config *Config) {
	// Paramètres du serveur
	if portStr := os.Getenv("SERVER_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			config.Server.Port = port
		}
	}

	if storagePath := os.Getenv("STORAGE_PATH"); storagePath != "" {
		config.Storage.Path = storagePath
	}

	// Paramètres de logging
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		config.Logging.File = logFile
	}

	// Cache
	if maxSize := os.Getenv("CACHE_MAX_SIZE"); maxSize != "" {
		if n, err := strconv.Atoi(maxSize); err == nil {
			config.Cache.MaxSize = n
		}
	}
	if ttl := os.Getenv("CACHE_DEFAULT_TTL"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil {
			config.Cache.DefaultTTLSeconds = n
		}
	}

	// Images and queue
	if workers := os.Getenv("IMAGE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			config.Images.Workers = n
		}
	}
	if driver := os.Getenv("QUEUE_DRIVER"); driver != "" {
		config.Queue.Driver = driver
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Queue.RedisURL = redisURL
	}

	// Paramètres de backup
	if provider := os.Getenv("BACKUP_PROVIDER"); provider != "" {
		config.Backup.Provider = provider
	}
	if enabled := os.Getenv("BACKUP_ENABLED"); enabled != "" {
		config.Backup.Enabled = enabled == "true"
	}
	if gcpBucket := os.Getenv("GCP_BUCKET"); gcpBucket != "" {
		config.Backup.GCP.Bucket = gcpBucket
	}
	if gcpProjectID := os.Getenv("GCP_PROJECT_ID"); gcpProjectID != "" {
		config.Backup.GCP.ProjectID = gcpProjectID
	}
	if awsBucket := os.Getenv("AWS_BUCKET"); awsBucket != "" {
		config.Backup.AWS.Bucket = awsBucket
	}
	if awsRegion := os.Getenv("AWS_REGION"); awsRegion != "" {
		config.Backup.AWS.Region = awsRegion
	}
	if azureAccount := os.Getenv("AZURE_STORAGE_ACCOUNT"); azureAccount != "" {
		config.Backup.Azure.StorageAccount = azureAccount
	}
	if azureContainer := os.Getenv("AZURE_CONTAINER"); azureContainer != "" {
		config.Backup.Azure.Container = azureContainer
	}

	loadAuthFromEnv(config)
}

// loadAuthFromEnv reads users from IMGVAULT_USERS ("user1:pass1,user2:pass2").
// When set it replaces the users from the YAML file.
func loadAuthFromEnv(config *Config) {
	usersEnv := os.Getenv("IMGVAULT_USERS")
	if usersEnv == "" {
		return
	}

	config.Auth.Users = []User{}
	for _, userPair := range strings.Split(usersEnv, ",") {
		parts := strings.SplitN(strings.TrimSpace(userPair), ":", 2)
		if len(parts) == 2 && parts[0] != "" {
			config.Auth.Users = append(config.Auth.Users, User{
				Username: strings.TrimSpace(parts[0]),
				Password: strings.TrimSpace(parts[1]),
			})
		}
	}
}

// LoadSecrets charge les secrets depuis les variables d'environnement
func LoadSecrets() *Secrets {
	secrets := &Secrets{}

	// AWS secrets
	secrets.AWSAccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	secrets.AWSSecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	// GCP secrets
	secrets.GCPCredentialsFile = os.Getenv("GCP_CREDENTIALS_FILE")

	// Azure secrets
	secrets.AzureStorageAccountKey = os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")

	return secrets
}
