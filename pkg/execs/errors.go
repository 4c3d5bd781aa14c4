package execs

import (
	"errors"
	"fmt"
)

// ErrSpawn matches every [SpawnError] via [errors.Is].
var ErrSpawn = errors.New("spawn process")

// SpawnError is returned when the process could not be created, e.g. the
// executable is missing, permission is denied, or the working directory is bad.
type SpawnError struct {
	Err     error
	Command string
	Dir     string
}

func (e *SpawnError) Error() string {
	if e.Dir != "" {
		return fmt.Sprintf("%v %q in %s: %v", ErrSpawn, e.Command, e.Dir, e.Err)
	}

	return fmt.Sprintf("%v %q: %v", ErrSpawn, e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawn
}
