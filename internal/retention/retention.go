package retention

import (
	"log/slog"
	"os"
)

// Policy decides what happens to a local backup once it has been uploaded
type Policy struct {
	KeepLocal bool
}

// AfterUpload applies the policy to a file whose upload was confirmed.
// It reports whether the local file was removed. Removal failures are logged
// and leave the file in place.
func (p Policy) AfterUpload(path string) bool {
	if p.KeepLocal {
		return false
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return true
		}
		slog.Warn("failed to delete local backup after upload",
			"file", path,
			"error", err,
		)
		return false
	}

	slog.Info("deleted local backup after upload", "file", path)
	return true
}
