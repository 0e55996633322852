package conversation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// WriteHistory encodes the canonical log as an indented JSON array of
// {role, content} pairs. Secondary renderings are never exported.
func WriteHistory(w io.Writer, messages []Message) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Entries(messages)); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return nil
}

// ReadHistory decodes a previously exported history.
func ReadHistory(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

// HistoryFileName names an export after its creation time.
func HistoryFileName(now time.Time) string {
	return fmt.Sprintf("chat-history-%s.json", now.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// ExportFile writes the history under dir and returns the created path.
func ExportFile(dir string, messages []Message, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, HistoryFileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("open export %q: %w", path, err)
	}
	if err := WriteHistory(f, messages); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export %q: %w", path, err)
	}
	return path, nil
}
