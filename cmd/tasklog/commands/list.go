package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasklog/internal/app/list"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/taskapi"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	format       string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List tasks known to the backend.")
	c.Cmd.Flag("status", "Filter by status (pending, running, completed, failed, cancelled).").StringVar(&c.statusFilter)
	c.Cmd.Flag("format", "Output format (table, json, raw).").Default("table").EnumVar(&c.format, "table", "json", "raw")

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.ClientConfig(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve configuration: %w", err)
	}

	// Parse status filter if provided.
	var statusFilter *model.TaskStatus
	if c.statusFilter != "" {
		status := model.TaskStatus(strings.ToLower(c.statusFilter))
		switch status {
		case model.TaskStatusPending, model.TaskStatusRunning, model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCancelled:
			statusFilter = &status
		default:
			return fmt.Errorf("invalid status filter: %s (must be: pending, running, completed, failed, cancelled)", c.statusFilter)
		}
	}

	// Create the task API client.
	apiClient, err := taskapi.NewClient(taskapi.ClientConfig{
		ServerURL: cfg.ServerURL,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	// Create list service.
	svc, err := list.NewService(list.ServiceConfig{
		TaskLister: apiClient,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute list.
	tasks, err := svc.Run(ctx, list.Request{
		StatusFilter: statusFilter,
	})
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	// Print output.
	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintTaskList(tasks); err != nil {
		return fmt.Errorf("could not print list: %w", err)
	}

	return nil
}
