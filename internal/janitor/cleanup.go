package janitor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Only names of the form <id>.<uuid>.part are swept.
const partPattern = "*.????????-????-????-????-????????????.part"

// CleanStaleParts removes temporary download files in dir that were last
// written before olderThan ago. Such files are left behind only when the
// process died mid-download.
func CleanStaleParts(dir string, olderThan time.Duration, logger *log.Logger) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, partPattern))
	if err != nil {
		logger.Printf("part cleanup error: %v", err)
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	cleaned := 0

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(f); err != nil {
				logger.Printf("failed to remove stale part %s: %v", f, err)
			} else {
				cleaned++
			}
		}
	}

	if cleaned > 0 {
		logger.Printf("cleaned up %d stale partial downloads", cleaned)
	}
	return cleaned, nil
}

func Run(ctx context.Context, dir string, olderThan, interval time.Duration, logger *log.Logger) error {
	_, _ = CleanStaleParts(dir, olderThan, logger)
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = CleanStaleParts(dir, olderThan, logger)
		}
	}
}
