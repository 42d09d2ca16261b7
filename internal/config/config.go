// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

// Package config loads the service configuration from layered sources:
// struct defaults, an optional YAML file, and environment variables,
// with environment variables taking the highest priority.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dakshaa-fest/pulse/internal/database"
	syncer "github.com/dakshaa-fest/pulse/internal/sync"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig    `koanf:"server"`
	Database   database.Config `koanf:"database"`
	Reconciler syncer.Config   `koanf:"reconciler"`
	TeamCheck  TeamCheckConfig `koanf:"team_check"`
	WebSocket  WebSocketConfig `koanf:"websocket"`
	Logging    LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	Environment     string        `koanf:"environment" validate:"oneof=development production"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// TeamCheckConfig points at the registration backend's team endpoint,
// the fallback source when the direct team read fails. Empty URL
// disables the fallback.
type TeamCheckConfig struct {
	URL string `koanf:"url" validate:"omitempty,url"`
}

// WebSocketConfig holds the live-update fan-out settings.
type WebSocketConfig struct {
	// SendBufferSize is the per-client outbound queue. Clients that
	// fall this far behind are disconnected.
	SendBufferSize int `koanf:"send_buffer_size" validate:"min=1"`
}

// LoggingConfig holds the log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the loaded configuration against the struct tags.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("invalid configuration: %s failed %q check (value %v)",
			fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("validate configuration: %w", err)
}
