package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dropcode/dropcode/internal/backend"
	"github.com/fatih/structs"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	CONFIGS_DIR_NAME         = ".config"
	DROPCODE_CONFIG_DIR_NAME = "dropcode"
	CONFIG_FILE_NAME         = "config"
	CONFIG_FILE_EXT          = "yml"

	StyleRich = "rich"
	StyleRaw  = "raw"

	DefaultBackend = "https://mumulwi2i3.execute-api.ap-south-1.amazonaws.com/prod"
)

type Config struct {
	Backend              string `mapstructure:"backend" validate:"required,url"`
	UploadRoute          string `mapstructure:"upload_route" validate:"required,startswith=/"`
	DownloadRoute        string `mapstructure:"download_route" validate:"required,startswith=/"`
	FeedbackRoute        string `mapstructure:"feedback_route" validate:"required,startswith=/"`
	Verbose              bool   `mapstructure:"verbose"`
	PromptOverwriteFiles bool   `mapstructure:"prompt_overwrite_files"`
	TuiStyle             string `mapstructure:"tui_style" validate:"oneof=rich raw"`
	Theme                string `mapstructure:"theme" validate:"oneof=light dark"`
	Retries              int    `mapstructure:"retries" validate:"min=0,max=10"`
}

func GetDefault() Config {
	return Config{
		Backend:              DefaultBackend,
		UploadRoute:          "/upload",
		DownloadRoute:        "/download",
		FeedbackRoute:        "/feedback",
		Verbose:              false,
		PromptOverwriteFiles: true,
		TuiStyle:             StyleRich,
		Theme:                "light",
		Retries:              0,
	}
}

func (config Config) Map() map[string]any {
	m := map[string]any{}
	for _, field := range structs.Fields(config) {
		key := field.Tag("mapstructure")
		value := field.Value()
		m[key] = value
	}
	return m
}

// Yaml renders the config with sorted keys, so that written files are stable.
func (config Config) Yaml() []byte {
	m := config.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, k := range keys {
		builder.WriteString(fmt.Sprintf("%s: %v", k, m[k]))
		builder.WriteRune('\n')
	}
	return []byte(builder.String())
}

// BackendConfig returns the backend client configuration.
func (config Config) BackendConfig() backend.Config {
	return backend.Config{
		BaseURL:       config.Backend,
		UploadRoute:   config.UploadRoute,
		DownloadRoute: config.DownloadRoute,
		FeedbackRoute: config.FeedbackRoute,
		Retries:       config.Retries,
	}
}

var validate = validator.New()

func (config Config) Validate() error {
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func IsDefault(key string) bool {
	defaults := GetDefault().Map()
	return viper.Get(key) == defaults[key]
}

// Load decodes the current viper state.
func Load() (Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return config, config.Validate()
}

// Init initializes the viper config.
// `config.yml` is created in $HOME/.config/dropcode if not already existing.
// NOTE: The precedence levels of viper are the following: flags -> config file -> defaults.
func Init() error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("resolving home dir: %w", err)
	}
	return InitIn(filepath.Join(home, CONFIGS_DIR_NAME, DROPCODE_CONFIG_DIR_NAME))
}

// InitIn is Init with an explicit config directory.
func InitIn(configPath string) error {
	viper.AddConfigPath(configPath)
	viper.SetConfigName(CONFIG_FILE_NAME)
	viper.SetConfigType(CONFIG_FILE_EXT)

	if err := viper.ReadInConfig(); err != nil {
		// Create config file if not found.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err := os.MkdirAll(configPath, os.ModePerm)
			if err != nil {
				return fmt.Errorf("Could not create config directory: %w", err)
			}

			fileName := filepath.Join(configPath, fmt.Sprintf("%s.%s", CONFIG_FILE_NAME, CONFIG_FILE_EXT))
			configFile, err := os.Create(fileName)
			if err != nil {
				return fmt.Errorf("Could not create config file: %w", err)
			}
			defer configFile.Close()

			_, err = configFile.Write(GetDefault().Yaml())
			if err != nil {
				return fmt.Errorf("Could not write defaults to config file: %w", err)
			}
			viper.SetConfigFile(fileName)
		} else {
			return fmt.Errorf("Could not read config file: %w", err)
		}
	}
	for k, v := range GetDefault().Map() {
		viper.SetDefault(k, v)
	}
	return nil
}
