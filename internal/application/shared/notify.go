package shared

import (
	"context"

	"github.com/propflow/backend/internal/domain/notification"
)

// Notify appends a notification through repos, inside the caller's transaction
func Notify(ctx context.Context, repos Repositories, kind notification.Kind, message, resource, actor string) error {
	n, err := notification.New(kind, message, resource, actor)
	if err != nil {
		return err
	}
	return repos.Notifications().Append(ctx, n)
}

// NotifyOnce appends the notification unless one with the same message
// exists. It reports whether a new entry was written.
func NotifyOnce(ctx context.Context, repos Repositories, kind notification.Kind, message, resource, actor string) (bool, error) {
	n, err := notification.New(kind, message, resource, actor)
	if err != nil {
		return false, err
	}
	return repos.Notifications().AppendOnce(ctx, n)
}
