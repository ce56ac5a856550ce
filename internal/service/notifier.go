package service

import (
	"context"
	"sync"

	"github.com/boddenberg/project-portal-go/internal/infra/observability"

	"go.uber.org/zap"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message surfaced to the user.
type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier raises user-visible notifications for hook outcomes.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier records notifications in the log and the metrics registry.
type LogNotifier struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLogNotifier creates a notifier backed by zap and Prometheus.
func NewLogNotifier(metrics *observability.Metrics, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{metrics: metrics, logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, note Notification) {
	if n.metrics != nil {
		n.metrics.IncrNotification(string(note.Level))
	}
	fields := []zap.Field{
		zap.String("title", note.Title),
		zap.String("message", note.Message),
	}
	if note.Level == LevelError {
		n.logger.Warn("notification", fields...)
		return
	}
	n.logger.Info("notification", fields...)
}

// Recorder keeps notifications in memory. A request-scoped Recorder lets the
// HTTP layer return what the hooks raised.
type Recorder struct {
	mu    sync.Mutex
	next  Notifier
	notes []Notification
}

// NewRecorder creates a recorder that also forwards to next, if non-nil.
func NewRecorder(next Notifier) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Notify(ctx context.Context, n Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Notify(ctx, n)
	}
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}
