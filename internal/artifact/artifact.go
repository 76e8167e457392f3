// Package artifact manages backup files in the backup directory.
//
// A backup is written to a randomly named temporary file next to its final
// location and renamed into place once it is complete, so the final path
// never holds partial content. Temporary files left behind by a crash are not
// cleaned up automatically; they all start with TempPrefix.
package artifact

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// TempPrefix is the name prefix of in-progress backup files
const TempPrefix = ".auto-backup-"

// Artifact is a backup being written to Temp and published to Final
type Artifact struct {
	Temp  string
	Final string
}

// New allocates a temporary path in dir for a backup that will be published
// as dir/filename. The temporary file itself is created by whoever writes it.
func New(dir, filename string) (*Artifact, error) {
	token := make([]byte, 4)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("failed to generate temp name: %w", err)
	}

	return &Artifact{
		Temp:  filepath.Join(dir, TempPrefix+hex.EncodeToString(token)),
		Final: filepath.Join(dir, filename),
	}, nil
}

// Name returns the final filename without directory
func (a *Artifact) Name() string {
	return filepath.Base(a.Final)
}

// Publish atomically replaces the final path with the temporary file
func (a *Artifact) Publish() error {
	if err := os.Rename(a.Temp, a.Final); err != nil {
		return fmt.Errorf("failed to publish %s: %w", a.Name(), err)
	}
	return nil
}

// Discard removes the temporary file. The final path is left untouched.
func (a *Artifact) Discard() error {
	if err := os.Remove(a.Temp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}

// Size returns the size of the published file
func (a *Artifact) Size() (int64, error) {
	info, err := os.Stat(a.Final)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
