package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/data/repos/testutil"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
)

type fakeAuditRepo struct {
	entries   []*domain.AuditLogEntry
	appendErr error
}

func (f *fakeAuditRepo) Append(_ dbctx.Context, entry *domain.AuditLogEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByEntity(_ dbctx.Context, entityType, entityID string, _ int) ([]*domain.AuditLogEntry, error) {
	var out []*domain.AuditLogEntry
	for _, e := range f.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestGuardedExecuteWritesEntryBeforeEffect(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(testutil.Logger(t), repo)
	actor := uuid.New()

	effectRan := false
	err := svc.GuardedExecute(context.Background(), actor, domain.AuditActionUserDelete, "user", "u-1", map[string]any{"email": "x@y.z"}, func(ctx context.Context) error {
		if len(repo.entries) != 1 {
			t.Fatalf("audit entry must be written before the effect runs, have=%d", len(repo.entries))
		}
		effectRan = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !effectRan {
		t.Fatalf("effect did not run")
	}

	entry := repo.entries[0]
	if entry.ActorID != actor || entry.Action != domain.AuditActionUserDelete {
		t.Fatalf("entry mismatch: %+v", entry)
	}
	if len(entry.Metadata) == 0 {
		t.Fatalf("metadata not recorded")
	}
}

func TestGuardedExecuteFailsClosedOnAuditError(t *testing.T) {
	repo := &fakeAuditRepo{appendErr: errors.New("disk full")}
	svc := NewAuditService(testutil.Logger(t), repo)

	effectRuns := 0
	err := svc.GuardedExecute(context.Background(), uuid.New(), domain.AuditActionJobPurge, "job", "j-1", nil, func(ctx context.Context) error {
		effectRuns++
		return nil
	})

	var auditErr *faults.AuditFailure
	if !errors.As(err, &auditErr) {
		t.Fatalf("want AuditFailure, got=%v", err)
	}
	if effectRuns != 0 {
		t.Fatalf("effect must never run when the audit write fails, ran=%d", effectRuns)
	}
	if auditErr.Action != domain.AuditActionJobPurge {
		t.Fatalf("failure action mismatch: %+v", auditErr)
	}
}

func TestGuardedExecutePropagatesEffectError(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(testutil.Logger(t), repo)

	boom := errors.New("effect failed")
	err := svc.GuardedExecute(context.Background(), uuid.New(), domain.AuditActionUserImpersonate, "user", "u-2", nil, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want effect error, got=%v", err)
	}
	// The entry stays; an audited attempt that failed is still an attempt.
	if len(repo.entries) != 1 {
		t.Fatalf("want 1 entry, got=%d", len(repo.entries))
	}
}

func TestGuardedExecuteValidatesArguments(t *testing.T) {
	svc := NewAuditService(testutil.Logger(t), &fakeAuditRepo{})
	noop := func(ctx context.Context) error { return nil }

	if err := svc.GuardedExecute(context.Background(), uuid.Nil, "a", "t", "id", nil, noop); !errors.Is(err, faults.ErrUnauthorized) {
		t.Fatalf("nil actor: want ErrUnauthorized, got=%v", err)
	}
	if err := svc.GuardedExecute(context.Background(), uuid.New(), "", "t", "id", nil, noop); !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("empty action: want ErrInvalidArgument, got=%v", err)
	}
	if err := svc.GuardedExecute(context.Background(), uuid.New(), "a", "t", "id", nil, nil); !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("nil effect: want ErrInvalidArgument, got=%v", err)
	}
}
