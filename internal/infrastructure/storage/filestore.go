package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/triage"
)

const digestFileName = "daily_topics.json"

// FileStore writes the digest JSON and stage snapshots under
// <root>/<day>/. An explicit output path overrides the digest location
// and anchors the stage files next to it.
type FileStore struct {
	root    string
	outPath string
}

var _ ports.ArtifactWriter = (*FileStore)(nil)

// NewFileStore builds a store rooted at dir, defaulting to data/index.
func NewFileStore(root, outPath string) *FileStore {
	if root == "" {
		root = "data/index"
	}
	return &FileStore{root: root, outPath: outPath}
}

// WriteDigest marshals the digest with indentation and returns the
// written path.
func (s *FileStore) WriteDigest(_ context.Context, digest *triage.Digest) (string, error) {
	if digest == nil {
		return "", fmt.Errorf("digest is nil")
	}

	path := s.outPath
	if path == "" {
		path = filepath.Join(s.root, dayOrPlaceholder(digest.Day), digestFileName)
	}

	payload, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal digest: %w", err)
	}
	payload = append(payload, '\n')

	if err := writeFile(path, payload); err != nil {
		return "", err
	}
	return path, nil
}

// WriteStages dumps each non-empty stage as a JSONL file next to the
// digest.
func (s *FileStore) WriteStages(_ context.Context, day string, stages []ports.StageSnapshot) error {
	dir := s.dayDir(day)
	for _, stage := range stages {
		if stage.Stage == "" || len(stage.Rows) == 0 {
			continue
		}
		if err := writeJSONL(filepath.Join(dir, stage.Stage+".jsonl"), stage.Rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) dayDir(day string) string {
	if s.outPath != "" {
		return filepath.Dir(s.outPath)
	}
	return filepath.Join(s.root, dayOrPlaceholder(day))
}

func dayOrPlaceholder(day string) string {
	if day == "" {
		return "unknown-day"
	}
	return day
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSONL(path string, rows []any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("encode row in %s: %w", filepath.Base(path), err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}
