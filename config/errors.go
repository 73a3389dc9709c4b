package config

import (
	"errors"
	"fmt"
)

// Errors returned while loading a configuration.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrTooManyArguments   = errors.New("too many positional arguments")
)

// ConfigError reports a setting that cannot be used, naming the field and the
// raw value given for it.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Malformed argument <%s>: '%s' %s",
		e.Field, e.Value, e.Reason)
}
