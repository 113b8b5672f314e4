package jobaccess

import (
	"context"
	"errors"
	"fmt"

	"subtitler/internal/api"
	"subtitler/internal/history"
)

// Session represents a job access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback uses the daemon API when it answers, then falls back to
// reading the history database directly. API errors other than an
// unreachable daemon (bad token, server failure) are returned as-is.
func OpenWithFallback(
	ctx context.Context,
	dial func() (*api.Client, error),
	openStore func() (*history.Store, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			_, err := client.Status(ctx)
			switch {
			case err == nil:
				return Session{Access: NewAPIAccess(client)}, nil
			case !errors.Is(err, api.ErrUnavailable):
				return Session{}, err
			}
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open history store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open history store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(store),
		close:  store.Close,
	}, nil
}
