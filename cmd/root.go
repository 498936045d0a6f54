package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "applyflow"
	envPrefix = "APPLYFLOW"
)

type Config struct {
	API      *APIConfig      `mapstructure:"api"`
	Database *DatabaseConfig `mapstructure:"database"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Minio    *MinioConfig    `mapstructure:"minio"`
	AI       *AIConfig       `mapstructure:"ai"`
	Limits   *LimitsConfig   `mapstructure:"limits"`
	Pipeline *PipelineConfig `mapstructure:"pipeline"`
}

type APIConfig struct {
	Port               int           `mapstructure:"port"`
	InternalSecret     string        `mapstructure:"internal-secret"`
	InternalSecretFile string        `mapstructure:"internal-secret-file"`
	Metrics            bool          `mapstructure:"metrics"`
	MaxUploadBytes     int64         `mapstructure:"max-upload-bytes"`
	DocumentLinkTTL    time.Duration `mapstructure:"document-link-ttl"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	SSLMode      string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	PasswordFile  string `mapstructure:"password-file"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel-prefix"`
}

type MinioConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Endpoint            string `mapstructure:"endpoint"`
	PublicEndpoint      string `mapstructure:"public-endpoint"`
	AccessKeyID         string `mapstructure:"access-key-id"`
	SecretAccessKey     string `mapstructure:"secret-access-key"`
	SecretAccessKeyFile string `mapstructure:"secret-access-key-file"`
	Bucket              string `mapstructure:"bucket"`
	Region              string `mapstructure:"region"`
	UseSSL              bool   `mapstructure:"use-ssl"`
	AutoCreateBucket    bool   `mapstructure:"auto-create-bucket"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	DefaultModel    string        `mapstructure:"default-model"`
	SupportedModels []string      `mapstructure:"supported-models"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max-retries"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
	Temperature     float32       `mapstructure:"temperature"`
}

type LimitsConfig struct {
	Concurrency       int64 `mapstructure:"concurrency"`
	RequestsPerMinute int   `mapstructure:"requests-per-minute"`
}

type PipelineConfig struct {
	ShortlistThreshold int   `mapstructure:"shortlist-threshold"`
	MalformedRetries   int   `mapstructure:"malformed-retries"`
	ResumeMaxBytes     int64 `mapstructure:"resume-max-bytes"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "applyflow screens job applications with an AI pipeline: résumé extraction, match scoring and cover letters",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"database.password-file":       "APPLYFLOW_DB_PASSWORD_FILE",
		"minio.secret-access-key-file": "APPLYFLOW_MINIO_SECRET_FILE",
		"api.internal-secret-file":     "APPLYFLOW_INTERNAL_SECRET_FILE",
		"redis.password-file":          "APPLYFLOW_REDIS_PASSWORD_FILE",
		"pipeline.shortlist-threshold": "APPLYFLOW_SHORTLIST_THRESHOLD",
		"ai.gemini.default-model":      "APPLYFLOW_DEFAULT_MODEL",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is applyflow.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.metrics", true)
	viper.SetDefault("api.max-upload-bytes", 10<<20)
	viper.SetDefault("api.document-link-ttl", 15*time.Minute)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", app)
	viper.SetDefault("database.user", app)
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.channel-prefix", app)

	viper.SetDefault("minio.enabled", false)
	viper.SetDefault("minio.bucket", app)
	viper.SetDefault("minio.auto-create-bucket", true)

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.timeout", 45*time.Second)
	viper.SetDefault("ai.gemini.max-retries", 2)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.gemini.temperature", 0.2)

	viper.SetDefault("limits.concurrency", 4)
	viper.SetDefault("limits.requests-per-minute", 60)

	viper.SetDefault("pipeline.shortlist-threshold", 75)
	viper.SetDefault("pipeline.malformed-retries", 1)
	viper.SetDefault("pipeline.resume-max-bytes", 10<<20)
}

func initConfig() {
	// The version command runs without any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file exists but is broken. A missing
	// default file is fine: defaults and environment cover a local run.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch {
	case c.API == nil, c.Database == nil, c.Redis == nil, c.Minio == nil, c.AI == nil, c.Limits == nil, c.Pipeline == nil:
		return errors.New("config is missing a section")
	case c.AI.Gemini == nil:
		return errors.New("ai.gemini section is required")
	}

	if provider := strings.ToLower(strings.TrimSpace(c.AI.Provider)); provider != "" && provider != "gemini" {
		return fmt.Errorf("unsupported ai provider: %s", c.AI.Provider)
	}
	if t := c.Pipeline.ShortlistThreshold; t < 1 || t > 100 {
		return fmt.Errorf("pipeline.shortlist-threshold must be within 1..100, got %d", t)
	}
	if c.Minio.Enabled && (strings.TrimSpace(c.Minio.Endpoint) == "" || strings.TrimSpace(c.Minio.Bucket) == "") {
		return errors.New("minio.endpoint and minio.bucket are required when minio is enabled")
	}
	return nil
}
