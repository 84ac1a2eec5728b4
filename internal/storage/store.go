package storage

import (
	"context"

	"operon/internal/model"
)

// Store persists dispatch sessions and their per-round traces for reporting.
type Store interface {
	Init(ctx context.Context) error
	SaveSession(ctx context.Context, session model.SessionRecord) error
	GetSession(ctx context.Context, id string) (model.SessionRecord, bool, error)
	ListSessions(ctx context.Context) ([]model.SessionRecord, error)
	SaveTrace(ctx context.Context, sessionID string, trace []model.DispatchRecord) error
	GetTrace(ctx context.Context, sessionID string) ([]model.DispatchRecord, bool, error)
}
