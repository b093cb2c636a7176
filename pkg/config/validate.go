package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	// Upstream endpoints are required.
	if c.Upstream.ConversationURL == "" {
		errs = append(errs, fmt.Errorf("upstream.conversation_url is required"))
	}
	if c.Upstream.PrewarmURL == "" {
		errs = append(errs, fmt.Errorf("upstream.prewarm_url is required"))
	}
	if c.Upstream.CompletionsURL == "" {
		errs = append(errs, fmt.Errorf("upstream.completions_url is required"))
	}
	if c.Upstream.TaskStatusURL == "" {
		errs = append(errs, fmt.Errorf("upstream.task_status_url is required"))
	}

	// Polling bounds keep the long-poll path finite.
	if c.Upstream.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("upstream.poll_interval must be > 0, got %v", c.Upstream.PollInterval))
	}
	if c.Upstream.PollMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("upstream.poll_max_attempts must be > 0, got %d", c.Upstream.PollMaxAttempts))
	}

	if c.Upstream.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream.connect_timeout must be > 0, got %v", c.Upstream.ConnectTimeout))
	}

	// The account table is validated by building it.
	if _, err := c.BuildTable(); err != nil {
		errs = append(errs, fmt.Errorf("accounts: %w", err))
	}

	return errors.Join(errs...)
}
