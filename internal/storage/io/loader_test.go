package io_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklog/internal/model"
	storageio "github.com/slok/tasklog/internal/storage/io"
)

func TestGetConfig(t *testing.T) {
	tests := map[string]struct {
		files     map[string]string
		path      string
		expConfig model.ClientConfig
		expErr    bool
	}{
		"a full config file should be loaded": {
			files: map[string]string{
				"config.yaml": `
server_url: http://tasks.example.com:8080
db_path: /var/lib/tasklog/tasklog.db
reconnect_delay_ms: 5000
heartbeat_timeout_ms: 60000
max_buffered_events: 500
`,
			},
			path: "config.yaml",
			expConfig: model.ClientConfig{
				ServerURL:         "http://tasks.example.com:8080",
				DBPath:            "/var/lib/tasklog/tasklog.db",
				ReconnectDelay:    5 * time.Second,
				HeartbeatTimeout:  60 * time.Second,
				MaxBufferedEvents: 500,
			},
		},
		"a partial config file should leave the rest zero": {
			files: map[string]string{
				"config.yaml": `server_url: http://localhost:9090`,
			},
			path: "config.yaml",
			expConfig: model.ClientConfig{
				ServerURL: "http://localhost:9090",
			},
		},
		"a missing file should fail": {
			files:  map[string]string{},
			path:   "config.yaml",
			expErr: true,
		},
		"invalid yaml should fail": {
			files: map[string]string{
				"config.yaml": `server_url: [broken`,
			},
			path:   "config.yaml",
			expErr: true,
		},
		"a negative reconnect delay should fail": {
			files: map[string]string{
				"config.yaml": `reconnect_delay_ms: -100`,
			},
			path:   "config.yaml",
			expErr: true,
		},
		"a negative buffer bound should fail": {
			files: map[string]string{
				"config.yaml": `max_buffered_events: -1`,
			},
			path:   "config.yaml",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			fsys := fstest.MapFS{}
			for path, content := range test.files {
				fsys[path] = &fstest.MapFile{Data: []byte(content)}
			}

			repo := storageio.NewConfigYAMLRepository(fsys)
			got, err := repo.GetConfig(context.Background(), test.path)

			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
				assert.Equal(t, test.expConfig, got)
			}
		})
	}
}
