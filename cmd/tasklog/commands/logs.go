package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasklog/internal/app/logs"
	"github.com/slok/tasklog/internal/storage/sqlite"
)

type LogsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID       string
	fromSequence int64
	limit        int
	format       string
}

// NewLogsCommand returns the logs command.
func NewLogsCommand(rootCmd *RootCommand, app *kingpin.Application) *LogsCommand {
	c := &LogsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("logs", "Show the locally stored log history of a task.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("from-sequence", "Only show events after this sequence.").Int64Var(&c.fromSequence)
	c.Cmd.Flag("limit", "Maximum number of events to show.").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json, raw).").Default("table").EnumVar(&c.format, "table", "json", "raw")

	return c
}

func (c LogsCommand) Name() string { return c.Cmd.FullCommand() }

func (c LogsCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.ClientConfig(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve configuration: %w", err)
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Create logs service.
	svc, err := logs.NewService(logs.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute logs.
	events, err := svc.Run(ctx, logs.Request{
		TaskID:       c.taskID,
		FromSequence: c.fromSequence,
		Limit:        c.limit,
	})
	if err != nil {
		return fmt.Errorf("could not get task logs: %w", err)
	}

	// Print output.
	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintEvents(events); err != nil {
		return fmt.Errorf("could not print events: %w", err)
	}

	return nil
}
