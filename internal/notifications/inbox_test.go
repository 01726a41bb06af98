package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
)

func TestInboxDrainReturnsInOrder(t *testing.T) {
	inbox := NewInbox(10, nil)
	ctx := context.Background()
	inbox.Notify(ctx, enums.NotificationLevelInfo, "first")
	inbox.Notify(ctx, enums.NotificationLevelError, "second")

	if inbox.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", inbox.Pending())
	}
	got := inbox.Drain()
	if len(got) != 2 || got[0].Message != "first" || got[1].Message != "second" {
		t.Fatalf("unexpected drain result %+v", got)
	}
	if got[1].Level != enums.NotificationLevelError {
		t.Fatalf("unexpected level %s", got[1].Level)
	}
	if inbox.Pending() != 0 {
		t.Fatal("drain should clear the inbox")
	}
	if again := inbox.Drain(); again == nil || len(again) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", again)
	}
}

func TestInboxDropsOldestBeyondLimit(t *testing.T) {
	inbox := NewInbox(2, nil)
	ctx := context.Background()
	inbox.Notify(ctx, enums.NotificationLevelInfo, "a")
	inbox.Notify(ctx, enums.NotificationLevelInfo, "b")
	inbox.Notify(ctx, enums.NotificationLevelInfo, "c")

	got := inbox.Drain()
	if len(got) != 2 || got[0].Message != "b" || got[1].Message != "c" {
		t.Fatalf("unexpected drain result %+v", got)
	}
}

func TestInboxIgnoresEmptyAndNormalizesLevel(t *testing.T) {
	inbox := NewInbox(0, nil)
	ctx := context.Background()
	inbox.Notify(ctx, enums.NotificationLevelInfo, "")
	inbox.Notify(ctx, enums.NotificationLevel("loud"), "hello")

	got := inbox.Drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Level != enums.NotificationLevelInfo {
		t.Fatalf("expected info fallback, got %s", got[0].Level)
	}
}

func TestNotifyErrorUsesPublicMessage(t *testing.T) {
	inbox := NewInbox(5, nil)
	ctx := context.Background()
	NotifyError(ctx, inbox, pkgerrors.New(pkgerrors.CodeValidation, "select a time slot"))
	NotifyError(ctx, inbox, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("econnreset"), "quote provider"))
	NotifyError(ctx, inbox, nil)

	got := inbox.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Message != "select a time slot" {
		t.Fatalf("unexpected message %q", got[0].Message)
	}
	if got[1].Message != "dependency unavailable" {
		t.Fatalf("provider detail leaked: %q", got[1].Message)
	}
}
