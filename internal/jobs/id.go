package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const idTimestampLayout = "20060102150405"

// NewJobID builds a run identifier of the form
// {origin}_{YYYYMMDDHHMMSS}_{4-char-suffix}, e.g. OCD_CBT_20251113235900_7b2e.
// The format is load-bearing for downstream audit tooling; do not change it.
func NewJobID(projectOrigin string, now time.Time) (string, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating job id suffix: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", projectOrigin, now.Format(idTimestampLayout), hex.EncodeToString(b[:])), nil
}

// ParseJobID splits an identifier from the right: the last token is the
// random suffix, the second-to-last the timestamp, and everything else is
// the project origin rejoined with underscores. Splitting from the right is
// what keeps origins like "OCD_CBT" intact.
func ParseJobID(id string) (projectOrigin string, startedAt time.Time, suffix string, err error) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return "", time.Time{}, "", fmt.Errorf("malformed job id %q", id)
	}
	suffix = parts[len(parts)-1]
	if len(suffix) != 4 {
		return "", time.Time{}, "", fmt.Errorf("malformed job id suffix in %q", id)
	}
	ts := parts[len(parts)-2]
	startedAt, err = time.Parse(idTimestampLayout, ts)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("malformed job id timestamp in %q: %w", id, err)
	}
	projectOrigin = strings.Join(parts[:len(parts)-2], "_")
	if projectOrigin == "" {
		return "", time.Time{}, "", fmt.Errorf("missing project origin in job id %q", id)
	}
	return projectOrigin, startedAt, suffix, nil
}
