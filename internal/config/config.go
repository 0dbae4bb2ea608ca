package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override, e.g. MOLCARDS_BACKEND.
const EnvPrefix = "MOLCARDS_"

const defaultConfigFile = "molcards.yaml"

// Config holds the resolved settings for one run.
type Config struct {
	ConfigFile string `koanf:"config"`
	Backend    string `koanf:"backend" validate:"oneof=sqlite csv"`
	DB         string `koanf:"db" validate:"required_if=Backend sqlite"`
	CSV        string `koanf:"csv" validate:"required_if=Backend csv"`
	Addr       string `koanf:"addr" validate:"required"`
	ReposDir   string `koanf:"repos-dir" validate:"required"`
	LogLevel   string `koanf:"log-level" validate:"oneof=debug info warn error"`
	QuizCount  int    `koanf:"quiz-count" validate:"min=5,max=30"`
	Import     string `koanf:"import"`
	Export     string `koanf:"export"`
}

// OneShot reports whether the run imports or exports and then exits.
func (c Config) OneShot() bool {
	return c.Import != "" || c.Export != ""
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Flags declares the command line flags. Their defaults are the defaults of
// the whole configuration.
func Flags(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.String("config", defaultConfigFile, "Path to an optional YAML config file")
	f.String("backend", "sqlite", "Record store backend: sqlite or csv")
	f.String("db", "molecules.db", "Path to the SQLite database file")
	f.String("csv", "molecules.csv", "Path to the CSV record file")
	f.String("addr", "localhost:8080", "Address for the web interface")
	f.String("repos-dir", "repos", "Directory where deck repositories are cloned")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.Int("quiz-count", 10, "Default number of questions per quiz session (5-30)")
	f.String("import", "", "Import molecules from a CSV/XLSX file, a directory or a git URL, then exit")
	f.String("export", "", "Export all molecules to a .csv or .xlsx file, then exit")
	return f
}

// Load resolves configuration with precedence flags > environment > file >
// flag defaults. A missing default config file is ignored; a missing file
// named explicitly is an error.
func Load(flags *pflag.FlagSet, args []string) (Config, error) {
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")

	path, _ := flags.GetString("config")
	if envPath := os.Getenv(EnvPrefix + "CONFIG"); envPath != "" && !flags.Changed("config") {
		path = envPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		explicit := flags.Changed("config") || path != defaultConfigFile
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	// Unchanged flags only fill keys that are still unset.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = path

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey turns MOLCARDS_REPOS_DIR into repos-dir.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
}

// Validate checks a config for correctness.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}
