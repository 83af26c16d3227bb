package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event codes follow the site-wide numbering scheme: the events module owns
// the 17xxxx block plus 431000 for registrations and 131101 for bulk email.
const (
	CodeEventAdded       = 171000
	CodeEventEdited      = 172000
	CodeEventDeleted     = 173000
	CodeEventSearched    = 174000
	CodeEventViewed      = 175000
	CodeRegistration     = 431000
	CodeRegistrantsEmail = 131101
)

// Entry is a single append-only audit record.
type Entry struct {
	Timestamp time.Time
	Code      int
	Summary   string
	Actor     string
}

// Logger records audit entries. Writes are best-effort: they are never part
// of the transactional outcome of the operation being audited.
type Logger struct {
	out zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{out: logger.With().Str("component", "audit").Logger()}
}

// Record writes one audit entry.
func (l *Logger) Record(code int, summary, actor string) {
	if l == nil {
		return
	}
	l.out.Info().
		Time("timestamp", time.Now().UTC()).
		Int("code", code).
		Str("summary", summary).
		Str("actor", actor).
		Msg("audit")
}

type contextKey string

const loggerKey contextKey = "auditLogger"

// WithLogger attaches an audit logger to the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the audit logger from the context, falling back to a
// logger backed by the zerolog default when none was attached.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return NewLogger(*zerolog.Ctx(ctx))
}
