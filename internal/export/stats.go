package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/custodia-labs/ghexport-cli/internal/images"
)

// MissingAttachment records one failed download for a later retry
// pass. Records are append-only and written out line-delimited.
type MissingAttachment struct {
	Repo         string `json:"repo"`
	RepoSlug     string `json:"repo_slug"`
	Kind         string `json:"kind"`
	Number       string `json:"number"`
	URL          string `json:"url"`
	LocalPath    string `json:"local_path"`
	MarkdownPath string `json:"md_path"`
}

// RunStats aggregates download counters and failure records for one
// repository export run.
type RunStats struct {
	Images  images.Stats
	Missing []MissingAttachment
}

// MissingLogName returns the per-repository JSONL file name.
func MissingLogName(slug string) string {
	return fmt.Sprintf("missing_attachments_%s.jsonl", slug)
}

// WriteMissingLog writes the failure records as line-delimited JSON.
func WriteMissingLog(path string, missing []MissingAttachment) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, row := range missing {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadMissingLog parses a line-delimited failure log. Blank lines are
// skipped; a malformed line fails the whole read.
func ReadMissingLog(path string) ([]MissingAttachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []MissingAttachment
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row MissingAttachment
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
