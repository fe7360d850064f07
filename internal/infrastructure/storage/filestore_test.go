package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/triage"
)

func TestFileStoreWritesDigestUnderDayDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFileStore(root, "")

	digest := &triage.Digest{
		Day:       "2025-11-10",
		Timezone:  "Asia/Shanghai",
		Threshold: 0.55,
	}

	path, err := store.WriteDigest(context.Background(), digest)
	if err != nil {
		t.Fatalf("WriteDigest returned error: %v", err)
	}

	want := filepath.Join(root, "2025-11-10", "daily_topics.json")
	if path != want {
		t.Fatalf("expected path %s, got %s", want, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read digest: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Fatal("expected trailing newline")
	}

	var decoded triage.Digest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal digest: %v", err)
	}
	if decoded.Day != "2025-11-10" || decoded.Threshold != 0.55 {
		t.Fatalf("digest round trip mismatch: %+v", decoded)
	}
}

func TestFileStoreHonorsExplicitOutPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outPath := filepath.Join(root, "custom", "digest.json")
	store := NewFileStore(root, outPath)

	digest := &triage.Digest{Day: "2025-11-10"}

	path, err := store.WriteDigest(context.Background(), digest)
	if err != nil {
		t.Fatalf("WriteDigest returned error: %v", err)
	}
	if path != outPath {
		t.Fatalf("expected explicit path %s, got %s", outPath, path)
	}

	// Stage files land next to the overridden digest.
	err = store.WriteStages(context.Background(), "2025-11-10", []ports.StageSnapshot{
		{Stage: "recalled", Rows: []any{map[string]string{"arxiv_id": "2511.00001"}}},
	})
	if err != nil {
		t.Fatalf("WriteStages returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "custom", "recalled.jsonl")); err != nil {
		t.Fatalf("expected stage file next to digest: %v", err)
	}
}

func TestFileStoreWritesStageSnapshots(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewFileStore(root, "")

	stages := []ports.StageSnapshot{
		{Stage: "raw", Rows: []any{
			map[string]string{"arxiv_id": "2511.00001"},
			map[string]string{"arxiv_id": "2511.00002"},
		}},
		{Stage: "scored", Rows: []any{
			map[string]any{"arxiv_id": "2511.00001", "relevance": 0.9},
		}},
		{Stage: "dropped", Rows: nil},
	}

	if err := store.WriteStages(context.Background(), "2025-11-10", stages); err != nil {
		t.Fatalf("WriteStages returned error: %v", err)
	}

	dir := filepath.Join(root, "2025-11-10")

	data, err := os.ReadFile(filepath.Join(dir, "raw.jsonl"))
	if err != nil {
		t.Fatalf("read raw stage: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 raw lines, got %d", len(lines))
	}
	for _, line := range lines {
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			t.Fatalf("stage line is not JSON: %v", err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "scored.jsonl")); err != nil {
		t.Fatalf("expected scored stage file: %v", err)
	}
	// Empty stages produce no file.
	if _, err := os.Stat(filepath.Join(dir, "dropped.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("expected no file for empty stage, got %v", err)
	}
}
