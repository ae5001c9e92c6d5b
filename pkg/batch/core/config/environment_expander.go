package config

import (
	"os"
)

// EnvironmentExpander expands environment variable placeholders in raw configuration.
type EnvironmentExpander interface {
	// Expand replaces ${VAR} and $VAR placeholders in input.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders with os.ExpandEnv.
// Unset variables expand to the empty string.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand implements EnvironmentExpander.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.ExpandEnv(string(input))), nil
}
