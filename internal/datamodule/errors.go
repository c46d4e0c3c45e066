package datamodule

import (
	"errors"
	"fmt"
)

// ErrVerbNotConfigured is returned by a thunk for a verb whose service was
// never supplied. Nothing is dispatched in that case.
var ErrVerbNotConfigured = errors.New("verb not configured")

// ConfigError reports an invalid module configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("datamodule config: %s: %s", e.Field, e.Message)
}
