package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/retailsync/pkg/config"
	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/sources"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "RETAILSYNC"

// Source types accepted in the sources list.
const (
	SourceFile    = "file"
	SourceCensus  = "census"
	SourceFRED    = "fred"
	SourceWeather = "weather"
)

// Config holds the application configuration loaded from flags,
// environment variables, .env files and the config file.
type Config struct {
	// Global flags
	Verbose bool   `mapstructure:"verbose"`
	Quiet   bool   `mapstructure:"quiet"`
	NoColor bool   `mapstructure:"no_color"`
	Format  string `mapstructure:"format"`

	// ConfigFile is the config file in use, if any.
	ConfigFile string `mapstructure:"-"`

	// Logging configuration
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogOutput string `mapstructure:"log_output"`

	// Pipeline settings are read from the top level of the config file.
	Pipeline config.Config `mapstructure:",squash"`

	// Sources lists the inputs of reconcile and match.
	Sources []SourceConfig `mapstructure:"sources"`

	// StoreDSN enables persistence of reconcile results.
	StoreDSN string `mapstructure:"store_dsn"`

	// MetricsFile receives a Prometheus textfile after reconcile.
	MetricsFile string `mapstructure:"metrics_file"`
}

// SourceConfig is one entry of the sources list.
type SourceConfig struct {
	Name string `mapstructure:"name"`
	// Type is file (default), census, fred or weather.
	Type string `mapstructure:"type"`

	// File sources
	Path   string         `mapstructure:"path"`
	Format sources.Format `mapstructure:"format"`
	Schema sources.Schema `mapstructure:"schema"`

	// Census sources
	Census []sources.CensusFiles `mapstructure:"census"`

	// FRED sources map series ids to saved observation responses.
	Series map[string]string `mapstructure:"series"`

	// Weather sources read Path as a state weather document for Year.
	Year int `mapstructure:"year"`
}

// LoadConfig reads .env files, the environment and the config file into v.
// An explicit configFile must exist; otherwise .retailsync.yaml is looked up
// in the working directory and $HOME.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFiles()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapIO("read", configFile, err)
		}
	} else {
		v.SetConfigName(".retailsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.WrapIO("read", v.ConfigFileUsed(), err)
			}
		}
	}

	return decodeConfig(v)
}

// decodeConfig builds a Config from the current state of v, including any
// flags bound since loading.
func decodeConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewConfigError("cli", "", err.Error())
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	for i := range cfg.Sources {
		if cfg.Sources[i].Type == "" {
			cfg.Sources[i].Type = SourceFile
		}
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables resolve.
func setDefaults(v *viper.Viper) {
	d := config.Default()
	v.SetDefault("similarity_threshold", d.SimilarityThreshold)
	v.SetDefault("duplicate_policy", string(d.DuplicatePolicy))
	v.SetDefault("period_granularity", string(d.PeriodGranularity))
	v.SetDefault("blocking", string(d.Blocking))
	v.SetDefault("resolve_policy", string(d.ResolvePolicy))
	v.SetDefault("workers", d.Workers)
	v.SetDefault("max_periods", d.MaxPeriods)

	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("no_color", false)
	v.SetDefault("format", "")
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
	v.SetDefault("store_dsn", "")
	v.SetDefault("metrics_file", "")
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
