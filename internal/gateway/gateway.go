package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Messenger delivers a run summary to one chat channel (Telegram, Discord, etc.)
type Messenger interface {
	// Name identifies the channel in logs
	Name() string
	// Send posts text to the configured chat
	Send(ctx context.Context, text string) error
}

// Broadcast sends text to every messenger and joins the failures. One
// channel failing does not stop delivery to the others.
func Broadcast(ctx context.Context, messengers []Messenger, text string) error {
	var errs []error
	for _, m := range messengers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := m.Send(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}
