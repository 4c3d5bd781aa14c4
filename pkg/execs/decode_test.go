package execs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/comtrya/pkg/execs"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	invalid := []byte("ok\xffno")

	tcs := map[string]struct {
		input      []byte
		policy     execs.DecodePolicy
		want       string
		wantOffset int
		wantErr    bool
	}{
		"empty": {
			input:  nil,
			policy: execs.DecodeStrict,
			want:   "",
		},
		"valid strict": {
			input:  []byte("héllo\n"),
			policy: execs.DecodeStrict,
			want:   "héllo\n",
		},
		"valid lossy": {
			input:  []byte("héllo\n"),
			policy: execs.DecodeLossy,
			want:   "héllo\n",
		},
		"invalid lossy substitutes": {
			input:  invalid,
			policy: execs.DecodeLossy,
			want:   "ok\uFFFDno",
		},
		"invalid strict fails": {
			input:      invalid,
			policy:     execs.DecodeStrict,
			wantErr:    true,
			wantOffset: 2,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := execs.Decode("stdout", tc.input, tc.policy)
			if tc.wantErr {
				var decErr *execs.DecodingError
				require.ErrorAs(t, err, &decErr)
				assert.Equal(t, "stdout", decErr.Stream)
				assert.Equal(t, tc.wantOffset, decErr.Offset)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetDecodePolicy(t *testing.T) {
	t.Parallel()

	p, err := execs.GetDecodePolicy("")
	require.NoError(t, err)
	assert.Equal(t, execs.DecodeLossy, p)

	p, err = execs.GetDecodePolicy("STRICT")
	require.NoError(t, err)
	assert.Equal(t, execs.DecodeStrict, p)

	_, err = execs.GetDecodePolicy("best-effort")
	require.ErrorIs(t, err, execs.ErrUnknownDecodePolicy)
}
