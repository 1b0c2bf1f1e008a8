package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasklog/internal/app/follow"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/printer"
	"github.com/slok/tasklog/internal/storage"
	"github.com/slok/tasklog/internal/storage/memory"
	"github.com/slok/tasklog/internal/storage/sqlite"
	"github.com/slok/tasklog/internal/stream"
	"github.com/slok/tasklog/internal/stream/sse"
)

type FollowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID           string
	fromSequence     int64
	resume           bool
	noStore          bool
	reconnectDelay   time.Duration
	heartbeatTimeout time.Duration
	format           string
}

// NewFollowCommand returns the follow command.
func NewFollowCommand(rootCmd *RootCommand, app *kingpin.Application) *FollowCommand {
	c := &FollowCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("follow", "Stream a task's logs live, reconnecting automatically. Send SIGHUP to force an immediate reconnect.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("from-sequence", "Start streaming after this event sequence.").Int64Var(&c.fromSequence)
	c.Cmd.Flag("resume", "Resume after the last event already stored locally.").BoolVar(&c.resume)
	c.Cmd.Flag("no-store", "Do not persist received events to the local database.").BoolVar(&c.noStore)
	c.Cmd.Flag("reconnect-delay", "Fixed delay between reconnection attempts.").DurationVar(&c.reconnectDelay)
	c.Cmd.Flag("heartbeat-timeout", "Drop a silent connection after this duration.").DurationVar(&c.heartbeatTimeout)
	c.Cmd.Flag("format", "Output format (table, json, raw).").Default("table").EnumVar(&c.format, "table", "json", "raw")

	return c
}

func (c FollowCommand) Name() string { return c.Cmd.FullCommand() }

func (c FollowCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.ClientConfig(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve configuration: %w", err)
	}
	if c.reconnectDelay == 0 {
		c.reconnectDelay = cfg.ReconnectDelay
	}
	if c.heartbeatTimeout == 0 {
		c.heartbeatTimeout = cfg.HeartbeatTimeout
	}

	// Initialize storage: SQLite for persistence, memory when disabled.
	var repo storage.EventRepository
	if c.noStore {
		memRepo, err := memory.NewRepository(memory.RepositoryConfig{
			MaxEventsPerTask: cfg.MaxBufferedEvents,
			Logger:           logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		repo = memRepo
	} else {
		sqlRepo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: cfg.DBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer sqlRepo.Close()
		repo = sqlRepo
	}

	// Create the SSE transport.
	transport, err := sse.NewTransport(sse.TransportConfig{
		ServerURL: cfg.ServerURL,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create transport: %w", err)
	}

	// Create follow service.
	svc, err := follow.NewService(follow.ServiceConfig{
		Transport:         transport,
		Repository:        repo,
		Logger:            logger,
		ReconnectDelay:    c.reconnectDelay,
		HeartbeatTimeout:  c.heartbeatTimeout,
		MaxBufferedEvents: cfg.MaxBufferedEvents,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)

	// SIGHUP forces an immediate reconnection attempt.
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGHUP)
	defer signal.Stop(sigC)
	reconnectNowC := make(chan struct{}, 1)
	go func() {
		for range sigC {
			select {
			case reconnectNowC <- struct{}{}:
			default:
			}
		}
	}()

	delay := c.reconnectDelay
	if delay == 0 {
		delay = stream.DefaultReconnectDelay
	}

	var reconnected bool
	err = svc.Run(ctx, follow.Request{
		TaskID:         c.taskID,
		FromSequence:   c.fromSequence,
		Resume:         c.resume,
		StopOnTerminal: true,
		OnEvent: func(ev model.LogEvent) {
			if err := p.PrintEvent(ev); err != nil {
				logger.Errorf("Could not print event: %s", err)
			}
		},
		OnStateChange: func(old, new stream.State) {
			var notice string
			switch {
			case new == stream.StateReconnecting:
				reconnected = true
				notice = fmt.Sprintf("connection lost, reconnecting in %s", delay)
			case new == stream.StateOpen && reconnected:
				notice = "reconnected and receiving events"
			case new == stream.StateOpen:
				notice = "connected, receiving events"
			default:
				return
			}
			if err := p.PrintNotice(notice); err != nil {
				logger.Errorf("Could not print notice: %s", err)
			}
		},
		ReconnectNow: reconnectNowC,
	})
	if err != nil {
		return fmt.Errorf("could not follow task logs: %w", err)
	}

	return nil
}

// newPrinter returns the printer for an output format.
func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case "json":
		return printer.NewJSONPrinter(w)
	case "raw":
		return printer.NewRawPrinter(w)
	default: // table
		return printer.NewTablePrinter(w)
	}
}
