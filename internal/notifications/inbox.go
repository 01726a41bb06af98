package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
)

const defaultInboxLimit = 50

// Notification is a user-facing message produced by checkout operations.
type Notification struct {
	ID        string                  `json:"id"`
	Level     enums.NotificationLevel `json:"level"`
	Message   string                  `json:"message"`
	CreatedAt time.Time               `json:"created_at"`
}

// Notifier receives user-facing messages. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, level enums.NotificationLevel, message string)
}

// Inbox buffers notifications for a single checkout session until the client drains them.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	limit int
	logg  *logger.Logger
	now   func() time.Time
}

// NewInbox builds an inbox keeping at most limit pending notifications (oldest dropped first).
func NewInbox(limit int, logg *logger.Logger) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	return &Inbox{limit: limit, logg: logg, now: time.Now}
}

func (i *Inbox) Notify(ctx context.Context, level enums.NotificationLevel, message string) {
	if message == "" {
		return
	}
	if !level.IsValid() {
		level = enums.NotificationLevelInfo
	}
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: i.now().UTC(),
	}

	i.mu.Lock()
	i.items = append(i.items, n)
	if overflow := len(i.items) - i.limit; overflow > 0 {
		i.items = append([]Notification(nil), i.items[overflow:]...)
	}
	i.mu.Unlock()

	if i.logg != nil {
		ctx = i.logg.WithFields(ctx, map[string]any{"notification_level": string(level)})
		i.logg.Debug(ctx, "notification: "+message)
	}
}

// Drain returns and clears the pending notifications in arrival order.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Pending reports how many notifications are waiting.
func (i *Inbox) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

// NotifyError pushes the shopper-safe message for err.
func NotifyError(ctx context.Context, n Notifier, err error) {
	if n == nil || err == nil {
		return
	}
	n.Notify(ctx, enums.NotificationLevelError, pkgerrors.PublicMessage(err))
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, enums.NotificationLevel, string) {}
