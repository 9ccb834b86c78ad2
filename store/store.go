// Package store persists the state a gateway session needs to resume after
// the process restarts.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no state is stored under the key.
var ErrNotFound = errors.New("store: resume state not found")

// ResumeState is everything a resume frame and its dial target depend on.
type ResumeState struct {
	SessionID string    `msgpack:"session_id"`
	Sequence  int64     `msgpack:"seq"`
	ResumeURL string    `msgpack:"resume_url"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

type Store interface {
	Load(ctx context.Context, key string) (*ResumeState, error)
	Save(ctx context.Context, key string, state *ResumeState) error
	Delete(ctx context.Context, key string) error
}
