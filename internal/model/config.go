package model

import "time"

// ClientConfig is the client configuration loaded from a config file. Zero
// values mean "not set", the caller applies its own defaults on top.
type ClientConfig struct {
	ServerURL         string
	DBPath            string
	ReconnectDelay    time.Duration
	HeartbeatTimeout  time.Duration
	MaxBufferedEvents int
}
