// Package elevate decides when a command must run under an elevated identity
// and checks that elevation is available before it is used.
package elevate

import (
	"errors"
	"fmt"

	"github.com/macropower/comtrya/pkg/contexts"
)

// Tool is the elevation tool commands are re-issued through.
const Tool = "sudo"

// ErrElevation matches every [Error] via [errors.Is].
var ErrElevation = errors.New("command requires elevated privileges, but elevation could not be obtained")

// Error is returned when elevation was required but could not be validated.
type Error struct {
	Err     error
	Command string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Command, ErrElevation)
	}

	return fmt.Sprintf("%s: %v: %v", e.Command, ErrElevation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrElevation
}

// Elevate returns the command and arguments that should actually be spawned.
//
// When privileged is false, or user is already the superuser, the input is
// returned unchanged. Otherwise the command is re-issued through [Tool], with
// the original command as its first argument.
func Elevate(command string, args []string, privileged bool, user contexts.User) (string, []string) {
	if !privileged || user.IsSuperuser() {
		return command, args
	}

	elevated := make([]string, 0, len(args)+1)
	elevated = append(elevated, command)
	elevated = append(elevated, args...)

	return Tool, elevated
}

// Required reports whether command is the elevation tool, meaning elevation
// must be validated before the command is spawned.
func Required(command string) bool {
	return command == Tool
}
