package execs

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodePolicy controls how captured process output is turned into text.
type DecodePolicy string

const (
	// DecodeLossy replaces invalid UTF-8 sequences with U+FFFD.
	DecodeLossy DecodePolicy = "lossy"
	// DecodeStrict fails with a [DecodingError] on invalid UTF-8.
	DecodeStrict DecodePolicy = "strict"
)

var (
	ErrUnknownDecodePolicy = errors.New("unknown decode policy")

	AllDecodePolicies = []string{
		string(DecodeLossy),
		string(DecodeStrict),
	}
)

// GetDecodePolicy parses a policy name. The empty string selects [DecodeLossy].
func GetDecodePolicy(policy string) (DecodePolicy, error) {
	if policy == "" {
		return DecodeLossy, nil
	}

	p := DecodePolicy(strings.ToLower(policy))
	if slices.Contains([]DecodePolicy{DecodeLossy, DecodeStrict}, p) {
		return p, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownDecodePolicy, policy)
}

// DecodingError reports captured output that is not valid UTF-8.
type DecodingError struct {
	Err    error
	Stream string // "stdout" or "stderr".
	Offset int    // Byte offset of the first invalid sequence.
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode %s: invalid UTF-8 at byte %d", e.Stream, e.Offset)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// Decode converts raw output from the named stream into text according to policy.
// Under [DecodeLossy] it never fails.
func Decode(stream string, b []byte, policy DecodePolicy) (string, error) {
	if len(b) == 0 {
		return "", nil
	}

	if policy == DecodeStrict {
		_, n, err := transform.Bytes(encoding.UTF8Validator, b)
		if err != nil {
			return "", &DecodingError{Stream: stream, Offset: n, Err: err}
		}

		return string(b), nil
	}

	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD"), nil
	}

	return string(out), nil
}
