// Package lib provides a Go SDK for streaming task execution logs
// programmatically.
//
// This package allows applications to follow a task's log stream with
// automatic reconnection, inspect locally stored log history and list backend
// tasks without shelling out to the tasklog CLI binary.
//
// # Quick Start
//
// Create a client and follow a task until it finishes:
//
//	client, err := lib.New(ctx, lib.Config{ServerURL: "http://localhost:8080"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.FollowTask(ctx, "task-1", lib.FollowOpts{
//	    StopOnTerminal: true,
//	    OnEvent: func(ev lib.LogEvent) {
//	        fmt.Println(ev.Line)
//	    },
//	})
//
// # Reconnection
//
// The stream reconnects automatically after a fixed delay (3 seconds by
// default) whenever the transport drops, resuming from the last delivered
// event so no event is delivered twice. Observe connection state through
// [FollowOpts.OnState].
//
// # Persistence
//
// Received events are stored in a local SQLite database
// (~/.tasklog/tasklog.db by default) and can be read back with
// [Client.TaskLogs], also across process restarts via
// [FollowOpts.Resume].
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Task does not exist on the backend.
//   - [ErrNotValid]: Invalid input (e.g. empty task id).
//
// Transport failures while following are not returned as errors, they
// surface as state transitions plus error-kind events.
//
// # Logging
//
// The SDK is silent by default. Pass a logger implementing the interface in
// the log sub-package to receive structured log output.
package lib
