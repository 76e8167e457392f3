package compression

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// ErrUnknownAlgorithm is returned for compression names that have no codec.
var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// Algorithm identifies a compression codec
type Algorithm string

const (
	Plain Algorithm = "plain"
	Gzip  Algorithm = "gzip"
	LZMA  Algorithm = "lzma"
	Bzip2 Algorithm = "bz2"
)

// FileMode is applied to every file opened through the codec.
const FileMode os.FileMode = 0o600

// Parse maps a configured name to an Algorithm. "xz" is accepted as an alias
// for "lzma" since both produce an xz container.
func Parse(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "plain":
		return Plain, nil
	case "gzip":
		return Gzip, nil
	case "lzma", "xz":
		return LZMA, nil
	case "bz2":
		return Bzip2, nil
	}
	return "", fmt.Errorf("%w: %q (available: %v)", ErrUnknownAlgorithm, name, List())
}

// List returns the canonical algorithm names
func List() []string {
	return []string{string(Plain), string(Gzip), string(LZMA), string(Bzip2)}
}

// Suffix returns the filename suffix for the algorithm, including the dot.
func (a Algorithm) Suffix() string {
	switch a {
	case Gzip:
		return ".gz"
	case LZMA:
		return ".xz"
	case Bzip2:
		return ".bz2"
	default:
		return ""
	}
}

// Open creates (or truncates) path with owner-only permissions and returns a
// writer that compresses everything written to it. Closing the writer flushes
// the compressor and closes the file.
func Open(path string, alg Algorithm) (io.WriteCloser, error) {
	if _, err := Parse(string(alg)); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	// OpenFile only applies the mode to new files
	if err := file.Chmod(FileMode); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to restrict file permissions: %w", err)
	}

	var enc io.WriteCloser
	switch alg {
	case Plain:
		return file, nil
	case Gzip:
		enc = gzip.NewWriter(file)
	case LZMA:
		enc, err = xz.NewWriter(file)
	case Bzip2:
		enc, err = bzip2.NewWriter(file, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	}
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create %s writer: %w", alg, err)
	}

	return &writer{enc: enc, file: file}, nil
}

type writer struct {
	enc  io.WriteCloser
	file *os.File
}

func (w *writer) Write(p []byte) (int, error) {
	return w.enc.Write(p)
}

func (w *writer) Close() error {
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("failed to finish compression: %w", encErr)
	}
	return fileErr
}
