package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRule indicates a configuration entry naming no catalog rule.
	ErrUnknownRule = errors.New("rules: unknown rule id")
	// ErrBadParam indicates a parameter with the wrong type or range.
	ErrBadParam = errors.New("rules: invalid parameter")
	// ErrBadPriority indicates a priority outside 1..10.
	ErrBadPriority = errors.New("rules: priority out of range")
	// ErrCompile indicates a scripted rule body that does not compile.
	ErrCompile = errors.New("rules: scripted rule does not compile")
	// ErrScript indicates a scripted rule failure at evaluation time.
	ErrScript = errors.New("rules: scripted rule failed")
)

// ConfigError ties a configuration problem to the entry that caused it.
type ConfigError struct {
	Index int
	ID    string
	Err   error
}

func (e *ConfigError) Error() string {
	id := e.ID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("rule config %d (%s): %v", e.Index, id, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
