package hasher_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
)

func TestNew(t *testing.T) {
	t.Parallel()

	for _, name := range hasher.Available() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, err := hasher.New(name)
			require.NoError(t, err)
			assert.Equal(t, name, h.Algorithm())
		})
	}

	t.Run("empty selects default", func(t *testing.T) {
		t.Parallel()

		h, err := hasher.New("")
		require.NoError(t, err)
		assert.Equal(t, hasher.SHA256, h.Algorithm())
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		_, err := hasher.New("md4")
		assert.ErrorIs(t, err, hasher.ErrUnknownAlgorithm)
	})
}

func TestAvailable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"blake2b", "none", "sha256", "sha3-256", "xxh3"}, hasher.Available())
}

func TestSum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		algorithm string
		input     string
		want      string
		wantLen   int
	}{
		{
			algorithm: hasher.SHA256,
			input:     "hello",
			want:      "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			algorithm: hasher.SHA3,
			input:     "",
			want:      "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a",
		},
		{algorithm: hasher.XXH3, input: "hello", wantLen: 32},
		{algorithm: hasher.BLAKE2b, input: "hello", wantLen: 64},
		{algorithm: hasher.None, input: "hello", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			t.Parallel()

			h, err := hasher.New(tt.algorithm)
			require.NoError(t, err)

			got, err := h.Sum(strings.NewReader(tt.input))
			require.NoError(t, err)

			if tt.wantLen > 0 {
				assert.Len(t, got, tt.wantLen)
				again, err := h.Sum(strings.NewReader(tt.input))
				require.NoError(t, err)
				assert.Equal(t, got, again)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	got, err := hasher.File(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)

	_, err = hasher.File(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNoneSkipsIO(t *testing.T) {
	t.Parallel()

	h, err := hasher.New(hasher.None)
	require.NoError(t, err)

	got, err := h.Hash(filepath.Join(t.TempDir(), "missing"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
