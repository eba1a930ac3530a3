package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to platform users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogLevelConfigChange records an admin changing a level's per-minute rates.
// In-flight call sessions keep their frozen rates; this trail is how support
// answers "why was this call billed at the old rate".
func (s *Service) LogLevelConfigChange(ctx context.Context, actorUserID, actorRole, ip string, level int, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeLevelConfigChange,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Level:       &level,
		Message:     "level config updated",
		Metadata:    metadata,
	})
}

// LogAdminConfigChange records a change to the platform-wide config
// (share percentage, min call coins, platform margins).
func (s *Service) LogAdminConfigChange(ctx context.Context, actorUserID, actorRole, ip, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeAdminConfigChange,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     "admin config updated",
		Metadata:    metadata,
	})
}
