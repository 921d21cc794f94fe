package report

import (
	"context"
	"time"

	"bfban-bot/internal/bfban"
)

// Messenger delivers replies into a chat origin and waits for the next
// message from a specific sender there.
type Messenger interface {
	Send(ctx context.Context, origin int64, reply Reply) error
	WaitNext(ctx context.Context, origin, sender int64, timeout time.Duration) (Message, error)
}

// StatsClient resolves players and fetches career snapshots.
type StatsClient interface {
	ResolvePlayerID(ctx context.Context, name string) (int64, error)
	QueryFullStats(ctx context.Context, game, name string, pid int64) (*bfban.StatsSnapshot, error)
}

// CaseClient covers the case tracking service: prior case lookup, captcha
// challenges and the report submission itself.
type CaseClient interface {
	CaseStatus(ctx context.Context, pid int64) (string, error)
	FetchCaptcha(ctx context.Context) (bfban.Captcha, error)
	SubmitReport(ctx context.Context, body bfban.ReportBody) (string, error)
}

// ImageHost uploads raw evidence images and returns a public URL.
type ImageHost interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// CaptchaRenderer rasterizes challenge markup.
type CaptchaRenderer interface {
	Render(svg string) ([]byte, error)
}

// CaptchaMirror stores a rendered captcha on a secondary host, best effort.
type CaptchaMirror interface {
	Upload(ctx context.Context, imgBase64 string) (string, error)
}

// SubmissionRecord is what gets written to the audit log after a report is
// accepted upstream.
type SubmissionRecord struct {
	Target   string
	PID      int64
	Reporter int64
	Origin   int64
	Game     string
	CaseURL  string
}

// AuditLog persists accepted submissions.
type AuditLog interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
}
