package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/applyforge/applyforge-backend/internal/data/repos/testutil"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
)

func seedJob(t *testing.T, tx *gorm.DB, userID uuid.UUID) *domain.JobApplication {
	t.Helper()
	repo := NewJobRepo(tx, testutil.Logger(t))
	job := &domain.JobApplication{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "Platform Engineer",
		Company:     "Acme",
		ContextName: "Platform Engineer @ Acme",
		Status:      domain.JobStatusSaved,
	}
	if _, err := repo.Upsert(dbctx.Context{Ctx: context.Background(), Tx: tx}, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func TestUpsertBatchIsIdempotentPerArtifact(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobOutputRepo(tx, testutil.Logger(t))
	job := seedJob(t, tx, uuid.New())

	first := []OutputUpsert{{ArtifactType: domain.ArtifactCoverLetter, Content: datatypes.JSON(`{"content":"v1"}`)}}
	if err := repo.UpsertBatch(dbc, job.ID, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := []OutputUpsert{{ArtifactType: domain.ArtifactCoverLetter, Content: datatypes.JSON(`{"content":"v2"}`)}}
	if err := repo.UpsertBatch(dbc, job.ID, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := repo.GetByJobID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 row per (job, artifact), got=%d", len(rows))
	}
	if string(rows[0].Content) != `{"content":"v2"}` {
		t.Fatalf("content not updated, got=%s", rows[0].Content)
	}
}

func TestUpsertBatchSkipsUnknownArtifactTypes(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobOutputRepo(tx, testutil.Logger(t))
	job := seedJob(t, tx, uuid.New())

	patches := []OutputUpsert{
		{ArtifactType: "portfolio", Content: datatypes.JSON(`{}`)},
		{ArtifactType: domain.ArtifactResearch, Content: datatypes.JSON(`{"company_overview":"x"}`)},
	}
	if err := repo.UpsertBatch(dbc, job.ID, patches); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	rows, err := repo.GetByJobID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if len(rows) != 1 || rows[0].ArtifactType != domain.ArtifactResearch {
		t.Fatalf("unknown types must be skipped, got=%+v", rows)
	}
}

func TestIncrementGenerationCountEnforcesCeiling(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobOutputRepo(tx, testutil.Logger(t))
	job := seedJob(t, tx, uuid.New())

	const max = 3
	for i := 0; i < max; i++ {
		allowed, err := repo.IncrementGenerationCount(dbc, job.ID, domain.ArtifactResearch, max)
		if err != nil {
			t.Fatalf("increment %d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("increment %d should be allowed", i+1)
		}
	}

	allowed, err := repo.IncrementGenerationCount(dbc, job.ID, domain.ArtifactResearch, max)
	if err != nil {
		t.Fatalf("final increment: %v", err)
	}
	if allowed {
		t.Fatalf("increment past the ceiling must be rejected")
	}

	rows, err := repo.GetByJobID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if len(rows) != 1 || rows[0].GenerationCount != max {
		t.Fatalf("counter row mismatch: %+v", rows)
	}
}

func TestIncrementSeedsRowWithoutContent(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobOutputRepo(tx, testutil.Logger(t))
	job := seedJob(t, tx, uuid.New())

	allowed, err := repo.IncrementGenerationCount(dbc, job.ID, domain.ArtifactInterviewPrep, 3)
	if err != nil || !allowed {
		t.Fatalf("first increment: allowed=%v err=%v", allowed, err)
	}

	rows, err := repo.GetByJobID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want seeded row, got=%d", len(rows))
	}
	if rows[0].GenerationCount != 1 {
		t.Fatalf("want count 1, got=%d", rows[0].GenerationCount)
	}
}

func TestIncrementCountersAreIndependent(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobOutputRepo(tx, testutil.Logger(t))
	jobA := seedJob(t, tx, uuid.New())
	jobB := seedJob(t, tx, uuid.New())

	for i := 0; i < 3; i++ {
		if ok, err := repo.IncrementGenerationCount(dbc, jobA.ID, domain.ArtifactCoverLetter, 3); err != nil || !ok {
			t.Fatalf("jobA increment %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := repo.IncrementGenerationCount(dbc, jobA.ID, domain.ArtifactCoverLetter, 3); ok {
		t.Fatalf("jobA cover letter should be exhausted")
	}
	if ok, err := repo.IncrementGenerationCount(dbc, jobA.ID, domain.ArtifactOutreachMessage, 3); err != nil || !ok {
		t.Fatalf("other artifact must be unaffected: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.IncrementGenerationCount(dbc, jobB.ID, domain.ArtifactCoverLetter, 3); err != nil || !ok {
		t.Fatalf("other job must be unaffected: ok=%v err=%v", ok, err)
	}
}
