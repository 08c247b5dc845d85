package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nileways/storefront/pkg/logger"
)

// Severity classifies a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is a user-facing message produced by a cart operation. Mutations
// always produce one; background loads never do.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Notifier receives notifications emitted by cart operations.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// ============================================================================
// Implementations
// ============================================================================

// LogNotifier writes every notification to the structured log. It is the
// always-on sink behind the per-request collectors.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(l *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, notif Notification) {
	log := logger.WithContext(ctx, n.logger)
	switch notif.Severity {
	case SeverityError:
		log.WarnContext(ctx, "notification",
			slog.String("title", notif.Title),
			slog.String("description", notif.Description),
		)
	default:
		log.InfoContext(ctx, "notification",
			slog.String("title", notif.Title),
			slog.String("description", notif.Description),
		)
	}
}

// Collector buffers notifications for a single request so the HTTP layer can
// return them in the response envelope. Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	notes []Notification
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
}

// Drain returns the buffered notifications and resets the collector.
func (c *Collector) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notes
	c.notes = nil
	return out
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
