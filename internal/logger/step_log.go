package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OpenStepLog creates (or truncates) the per-step log file for a step run,
// named <logDir>/<step-key>.<timestamp>.<runID prefix>.log, mirroring the
// teacher's node.go per-step log naming scheme.
func OpenStepLog(logDir, stepKey, runID string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	safe := sanitize(stepKey)
	stamp := now.Format("20060102.15:04:05.000")
	shortID := runID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	name := fmt.Sprintf("%s.%s.%s.log", safe, stamp, shortID)
	return os.Create(filepath.Join(logDir, name))
}

// TranscriptPath is the job-level log file path: <logDir>/job.<runID>.log.
func TranscriptPath(logDir, runID string) string {
	return filepath.Join(logDir, fmt.Sprintf("job.%s.log", runID))
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
