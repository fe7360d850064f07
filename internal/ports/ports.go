package ports

import (
	"context"
	"time"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/triage"
)

// PaperSource pulls one local calendar day of papers from upstream providers.
type PaperSource interface {
	FetchDaily(ctx context.Context, day time.Time) ([]domain.Paper, error)
}

// DigestRepository persists adjudication decisions and digests for
// deduplication and history.
type DigestRepository interface {
	AlreadyAdjudicated(ctx context.Context, ids []string) (map[string]bool, error)
	SaveDecisions(ctx context.Context, day string, papers []triage.ScoredPaper) error
	SaveDigest(ctx context.Context, digest *triage.Digest) error
}

// StageSnapshot is one intermediate stage dump written next to the digest.
type StageSnapshot struct {
	Stage string
	Rows  []any
}

// ArtifactWriter lays down the digest file and optional stage snapshots.
type ArtifactWriter interface {
	WriteDigest(ctx context.Context, digest *triage.Digest) (string, error)
	WriteStages(ctx context.Context, day string, stages []StageSnapshot) error
}

// Notifier streams rendered digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
