package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/applyforge/applyforge-backend/internal/data/repos/testutil"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
)

func TestJobUpsertUpdatesExistingRow(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobRepo(tx, testutil.Logger(t))
	job := seedJob(t, tx, uuid.New())

	job.Status = domain.JobStatusApplied
	job.Title = "Senior Platform Engineer"
	if _, err := repo.Upsert(dbc, job); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.GetByID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Status != domain.JobStatusApplied || got.Title != "Senior Platform Engineer" {
		t.Fatalf("row not updated: %+v", got)
	}

	var count int64
	if err := tx.Model(&domain.JobApplication{}).Where("id = ?", job.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("upsert must not duplicate, count=%d", count)
	}
}

func TestJobGetByIDMissingReturnsNil(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewJobRepo(tx, testutil.Logger(t))

	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background(), Tx: tx}, uuid.New())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("want nil for missing row, got=%+v", got)
	}
}

func TestJobDeleteRemovesOutputs(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	jobRepo := NewJobRepo(tx, testutil.Logger(t))
	outputRepo := NewJobOutputRepo(tx, testutil.Logger(t))
	job := seedJob(t, tx, uuid.New())

	patches := []OutputUpsert{{ArtifactType: domain.ArtifactResearch, Content: datatypes.JSON(`{"company_overview":"x"}`)}}
	if err := outputRepo.UpsertBatch(dbc, job.ID, patches); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	if err := jobRepo.Delete(dbc, job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got, _ := jobRepo.GetByID(dbc, job.ID); got != nil {
		t.Fatalf("job still present: %+v", got)
	}
	rows, err := outputRepo.GetByJobID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("outputs must be removed with the job, got=%d", len(rows))
	}
}

func TestListByUserIDScopesToOwner(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewJobRepo(tx, testutil.Logger(t))

	owner := uuid.New()
	other := uuid.New()
	seedJob(t, tx, owner)
	seedJob(t, tx, owner)
	seedJob(t, tx, other)

	got, err := repo.ListByUserIDWithOutputs(dbc, owner)
	if err != nil {
		t.Fatalf("ListByUserIDWithOutputs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 jobs for owner, got=%d", len(got))
	}
	for _, job := range got {
		if job.UserID != owner {
			t.Fatalf("leaked another user's job: %+v", job)
		}
	}
}
