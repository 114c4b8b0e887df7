package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/gourmet/internal/exchange"
	"github.com/mesh-intelligence/gourmet/internal/logging"
	"github.com/mesh-intelligence/gourmet/internal/paths"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyLocale         = "locale"
	cfgKeyLogLevel       = "log.level"
	cfgKeyLogFormat      = "log.format"
	cfgKeyExportPrefix   = "export.prefix"
	cfgKeyExportCompress = "export.compress"

	envPrefix     = "GOURMET"
	defaultLocale = "und"
)

// envKeys may be overridden by GOURMET_<KEY> variables. data_dir is left
// out; GOURMET_DATA_DIR ranks below config.yaml and is handled by paths.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyLocale,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
	cfgKeyExportPrefix,
	cfgKeyExportCompress,
}

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend string        `yaml:"backend"`
	DataDir string        `yaml:"data_dir,omitempty"`
	Locale  string        `yaml:"locale"`
	Log     logSection    `yaml:"log"`
	Export  exportSection `yaml:"export"`
}

type logSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type exportSection struct {
	Prefix   string `yaml:"prefix"`
	Compress bool   `yaml:"compress"`
}

func defaultConfigFile() configFile {
	return configFile{
		Backend: types.BackendSQLite,
		Locale:  defaultLocale,
		Log:     logSection{Level: logging.DefaultLevel, Format: logging.FormatConsole},
		Export:  exportSection{Prefix: exchange.DefaultPrefix},
	}
}

const configHeader = "# Gourmet configuration. Environment variables GOURMET_<KEY> override\n" +
	"# these values, e.g. GOURMET_LOG_LEVEL=debug.\n"

// settings is the effective configuration of one invocation.
type settings struct {
	types.Config
	configDir      string
	locale         language.Tag
	exportPrefix   string
	exportCompress bool
}

// load resolves directories, reads config.yaml and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		v.Set(cfgKeyLogLevel, a.flags.logLevel)
	}

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend: v.GetString(cfgKeyBackend),
		DataDir: dataDir,
		Locale:  v.GetString(cfgKeyLocale),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w: %q", filepath.Join(configDir, configFileExt), err, cfg.Backend)
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return fmt.Errorf("%w: locale %q: %v", types.ErrValidation, cfg.Locale, err)
	}

	log, err := logging.New(cmd.ErrOrStderr(), v.GetString(cfgKeyLogLevel), v.GetString(cfgKeyLogFormat))
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrValidation, err)
	}

	a.log = log
	a.settings = settings{
		Config:         cfg,
		configDir:      configDir,
		locale:         tag,
		exportPrefix:   v.GetString(cfgKeyExportPrefix),
		exportCompress: v.GetBool(cfgKeyExportCompress),
	}
	log.Debug().Str("config_dir", configDir).Str("data_dir", dataDir).Msg("configuration loaded")
	return nil
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// config directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	def := defaultConfigFile()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyLocale, def.Locale)
	v.SetDefault(cfgKeyLogLevel, def.Log.Level)
	v.SetDefault(cfgKeyLogFormat, def.Log.Format)
	v.SetDefault(cfgKeyExportPrefix, def.Export.Prefix)
	v.SetDefault(cfgKeyExportCompress, def.Export.Compress)

	for _, key := range envKeys {
		if err := v.BindEnv(key, envName(key)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// envName maps a config key to its environment variable: log.level is
// GOURMET_LOG_LEVEL.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return writeConfigFile(path, defaultConfigFile())
}

func writeConfigFile(path string, cfg configFile) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}

func readConfigFile(path string) (configFile, error) {
	cfg := defaultConfigFile()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
