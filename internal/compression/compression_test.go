package compression

import (
	"bytes"
	stdbzip2 "compress/bzip2"
	stdgzip "compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Algorithm
	}{
		{"plain", Plain},
		{"gzip", Gzip},
		{"lzma", LZMA},
		{"xz", LZMA},
		{"bz2", Bzip2},
		{"GZIP", Gzip},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			alg, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, alg)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "", Plain.Suffix())
	assert.Equal(t, ".gz", Gzip.Suffix())
	assert.Equal(t, ".xz", LZMA.Suffix())
	assert.Equal(t, ".bz2", Bzip2.Suffix())
}

func decoderFor(t *testing.T, alg Algorithm, r io.Reader) io.Reader {
	t.Helper()

	switch alg {
	case Gzip:
		gr, err := stdgzip.NewReader(r)
		require.NoError(t, err)
		return gr
	case LZMA:
		xr, err := xz.NewReader(r)
		require.NoError(t, err)
		return xr
	case Bzip2:
		return stdbzip2.NewReader(r)
	default:
		return r
	}
}

func TestOpen_RoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("CREATE TABLE users (id int);\n", 5000))

	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			alg, err := Parse(name)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "dump.sql"+alg.Suffix())

			w, err := Open(path, alg)
			require.NoError(t, err)

			_, err = io.Copy(w, bytes.NewReader(payload))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			got, err := io.ReadAll(decoderFor(t, alg, f))
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestOpen_Permissions(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			alg, err := Parse(name)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "dump")
			w, err := Open(path, alg)
			require.NoError(t, err)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, FileMode, info.Mode().Perm())

			require.NoError(t, w.Close())
		})
	}
}

func TestOpen_TightensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	w, err := Open(path, Plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "existing content should be truncated")
}

func TestOpen_UnknownAlgorithm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump")

	_, err := Open(path, Algorithm("zip"))
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be created for an unknown algorithm")
}
