package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
	storageio "github.com/slok/tasklog/internal/storage/io"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

const (
	defaultServerURL = "http://localhost:8080"
	defaultDataDir   = ".tasklog"
	defaultDBFile    = "tasklog.db"
	defaultConfig    = "config.yaml"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ServerURL  string
	DBPath     string
	ConfigPath string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("server-url", "Task backend base URL.").Envar("TASKLOG_SERVER_URL").StringVar(&c.ServerURL)

	defaultDBPath := filepath.Join(homedir.HomeDir(), defaultDataDir, defaultDBFile)
	app.Flag("db-path", "Path to the SQLite database file.").Envar("TASKLOG_DB_PATH").Default(defaultDBPath).StringVar(&c.DBPath)

	defaultConfigPath := filepath.Join(homedir.HomeDir(), defaultDataDir, defaultConfig)
	app.Flag("config", "Path to the YAML configuration file.").Envar("TASKLOG_CONFIG").Default(defaultConfigPath).StringVar(&c.ConfigPath)

	return c
}

// ClientConfig resolves the effective client configuration: flag values win
// over the config file, the config file wins over built-in defaults. A
// missing config file at the default location is not an error.
func (c *RootCommand) ClientConfig(ctx context.Context) (model.ClientConfig, error) {
	cfg := model.ClientConfig{
		ServerURL: defaultServerURL,
		DBPath:    c.DBPath,
	}

	fileCfg, err := loadConfigFile(ctx, c.ConfigPath)
	if err != nil {
		return model.ClientConfig{}, err
	}
	if fileCfg != nil {
		if fileCfg.ServerURL != "" {
			cfg.ServerURL = fileCfg.ServerURL
		}
		if fileCfg.DBPath != "" && c.DBPath == filepath.Join(homedir.HomeDir(), defaultDataDir, defaultDBFile) {
			cfg.DBPath = fileCfg.DBPath
		}
		cfg.ReconnectDelay = fileCfg.ReconnectDelay
		cfg.HeartbeatTimeout = fileCfg.HeartbeatTimeout
		cfg.MaxBufferedEvents = fileCfg.MaxBufferedEvents
	}

	if c.ServerURL != "" {
		cfg.ServerURL = c.ServerURL
	}

	return cfg, nil
}

func loadConfigFile(ctx context.Context, path string) (*model.ClientConfig, error) {
	if _, err := os.Stat(path); err != nil {
		// The default config file is optional.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	dir, file := filepath.Split(path)
	repo := storageio.NewConfigYAMLRepository(os.DirFS(dir))
	cfg, err := repo.GetConfig(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("could not load config file %s: %w", path, err)
	}

	return &cfg, nil
}
