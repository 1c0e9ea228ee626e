package pipeline

import (
	"errors"
	"fmt"
)

// Configuration faults abort the whole run before any agent executes. Every
// other fault class (generation, history fetch, delivery) is recorded as
// data on the AgentResult and never propagates.
var (
	ErrInboxNotFound = errors.New("inbox not found")
	ErrInboxInactive = errors.New("inbox is inactive")
)

// ConfigError wraps the single fatal fault class of a pipeline run. Callers
// surface it distinctly from per-agent errors.
type ConfigError struct {
	InboxID string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pipeline config for inbox %s: %v", e.InboxID, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
