package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/data/repos/testutil"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
)

type fakeJobRepo struct {
	jobs      map[uuid.UUID]*domain.JobApplication
	upsertErr error
	deleteErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]*domain.JobApplication{}}
}

func (f *fakeJobRepo) Upsert(_ dbctx.Context, job *domain.JobApplication) (uuid.UUID, error) {
	if f.upsertErr != nil {
		return uuid.Nil, f.upsertErr
	}
	cp := *job
	f.jobs[job.ID] = &cp
	return job.ID, nil
}

func (f *fakeJobRepo) GetByID(_ dbctx.Context, jobID uuid.UUID) (*domain.JobApplication, error) {
	if job, ok := f.jobs[jobID]; ok {
		cp := *job
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeJobRepo) ListByUserIDWithOutputs(_ dbctx.Context, userID uuid.UUID) ([]*domain.JobApplication, error) {
	var out []*domain.JobApplication
	for _, job := range f.jobs {
		if job.UserID == userID {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) Delete(_ dbctx.Context, jobID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.jobs, jobID)
	return nil
}

func (f *fakeJobRepo) DeleteByUserID(_ dbctx.Context, userID uuid.UUID) error {
	for id, job := range f.jobs {
		if job.UserID == userID {
			delete(f.jobs, id)
		}
	}
	return nil
}

type fakeResumeRepo struct {
	resumes map[uuid.UUID]*domain.Resume
}

func newFakeResumeRepo() *fakeResumeRepo {
	return &fakeResumeRepo{resumes: map[uuid.UUID]*domain.Resume{}}
}

func (f *fakeResumeRepo) Upsert(_ dbctx.Context, resume *domain.Resume) (uuid.UUID, error) {
	cp := *resume
	f.resumes[resume.UserID] = &cp
	return resume.ID, nil
}

func (f *fakeResumeRepo) GetByUserID(_ dbctx.Context, userID uuid.UUID) (*domain.Resume, error) {
	if r, ok := f.resumes[userID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeResumeRepo) DeleteByUserID(_ dbctx.Context, userID uuid.UUID) error {
	delete(f.resumes, userID)
	return nil
}

// recordingOutputRepo logs the order of storage calls so tests can assert the
// snapshot-then-hydrate sequence.
type recordingOutputRepo struct {
	*fakeOutputRepo
	calls []string
}

func (r *recordingOutputRepo) UpsertBatch(dbc dbctx.Context, jobID uuid.UUID, patches []repos.OutputUpsert) error {
	err := r.fakeOutputRepo.UpsertBatch(dbc, jobID, patches)
	if err == nil {
		r.calls = append(r.calls, "upsert:"+jobID.String())
	}
	return err
}

func (r *recordingOutputRepo) GetByJobID(dbc dbctx.Context, jobID uuid.UUID) ([]*domain.JobOutputRecord, error) {
	r.calls = append(r.calls, "get:"+jobID.String())
	return r.fakeOutputRepo.GetByJobID(dbc, jobID)
}

type contextFixture struct {
	svc     JobContextService
	sess    *ContextSession
	jobs    *fakeJobRepo
	outputs *recordingOutputRepo
	resumes *fakeResumeRepo
}

func newContextFixture(t *testing.T) *contextFixture {
	t.Helper()
	jobs := newFakeJobRepo()
	outputs := &recordingOutputRepo{fakeOutputRepo: newFakeOutputRepo()}
	resumes := newFakeResumeRepo()
	svc := NewJobContextService(testutil.Logger(t), jobs, outputs, resumes, domain.DefaultWorkspaceDefaults())
	sess := svc.Session(uuid.New(), uuid.New())
	return &contextFixture{svc: svc, sess: sess, jobs: jobs, outputs: outputs, resumes: resumes}
}

func (fx *contextFixture) addJob(t *testing.T, title string) *domain.JobApplication {
	t.Helper()
	job, err := fx.svc.AddJob(context.Background(), fx.sess, JobInput{Title: title, Company: "Acme"})
	if err != nil {
		t.Fatalf("AddJob(%s): %v", title, err)
	}
	return job
}

func TestSessionIsReusedPerSessionID(t *testing.T) {
	fx := newContextFixture(t)
	again := fx.svc.Session(fx.sess.UserID(), fx.sess.SessionID())
	if again != fx.sess {
		t.Fatalf("same session id must return the same session")
	}
}

func TestAddJobActivatesAndPersists(t *testing.T) {
	fx := newContextFixture(t)
	job := fx.addJob(t, "Backend Engineer")

	if active := fx.sess.ActiveJobID(); active == nil || *active != job.ID {
		t.Fatalf("new job should be active, got=%v", active)
	}
	if got := fx.sess.Jobs(); len(got) != 1 || got[0].ID != job.ID {
		t.Fatalf("job not in cache: %+v", got)
	}
	if _, ok := fx.jobs.jobs[job.ID]; !ok {
		t.Fatalf("job not persisted")
	}
	if job.ContextName != "Backend Engineer @ Acme" {
		t.Fatalf("derived context name mismatch: %q", job.ContextName)
	}
}

func TestAddJobRollsBackOnPersistenceFailure(t *testing.T) {
	fx := newContextFixture(t)
	first := fx.addJob(t, "First")

	fx.jobs.upsertErr = errors.New("write timeout")
	_, err := fx.svc.AddJob(context.Background(), fx.sess, JobInput{Title: "Second", Company: "Acme"})

	var pErr *faults.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("want PersistenceError, got=%v", err)
	}
	if got := fx.sess.Jobs(); len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("optimistic insert not rolled back: %+v", got)
	}
	if active := fx.sess.ActiveJobID(); active == nil || *active != first.ID {
		t.Fatalf("active pointer not restored, got=%v", active)
	}
}

func TestAddJobSnapshotsPreviousWorkspace(t *testing.T) {
	fx := newContextFixture(t)
	first := fx.addJob(t, "First")

	fx.sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.ResumeText = "resume body"
		ws.CoverLetter.Content = "draft letter"
	})

	fx.addJob(t, "Second")

	if len(fx.outputs.upserted[first.ID]) == 0 {
		t.Fatalf("previous job's workspace was not snapshotted")
	}
	got := fx.sess.Workspace().State()
	if got.CoverLetter.Content != "" {
		t.Fatalf("new job should start with a fresh workspace, got=%q", got.CoverLetter.Content)
	}
	if got.ResumeText != "resume body" {
		t.Fatalf("resume text must survive the context switch, got=%q", got.ResumeText)
	}
}

func TestSelectJobSnapshotsBeforeHydrating(t *testing.T) {
	fx := newContextFixture(t)
	first := fx.addJob(t, "First")
	second := fx.addJob(t, "Second")

	// Second is active. Give it content, then switch back to first.
	fx.sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.CoverLetter.Content = "second letter"
	})
	fx.outputs.calls = nil

	if err := fx.svc.SelectJob(context.Background(), fx.sess, first.ID); err != nil {
		t.Fatalf("SelectJob: %v", err)
	}

	if len(fx.outputs.calls) < 2 {
		t.Fatalf("want snapshot then hydrate calls, got=%v", fx.outputs.calls)
	}
	if fx.outputs.calls[0] != "upsert:"+second.ID.String() {
		t.Fatalf("outgoing workspace must be snapshotted first, got=%v", fx.outputs.calls)
	}
	if fx.outputs.calls[1] != "get:"+first.ID.String() {
		t.Fatalf("target outputs must be fetched after the snapshot, got=%v", fx.outputs.calls)
	}
	if active := fx.sess.ActiveJobID(); active == nil || *active != first.ID {
		t.Fatalf("pointer not moved, got=%v", active)
	}
}

func TestSelectJobRestoresTargetContent(t *testing.T) {
	fx := newContextFixture(t)
	first := fx.addJob(t, "First")
	fx.sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.CoverLetter.Content = "first letter"
	})
	second := fx.addJob(t, "Second")

	if err := fx.svc.SelectJob(context.Background(), fx.sess, first.ID); err != nil {
		t.Fatalf("SelectJob: %v", err)
	}

	got := fx.sess.Workspace().State()
	if got.CoverLetter.Content != "first letter" {
		t.Fatalf("first job's content not restored, got=%q", got.CoverLetter.Content)
	}
	_ = second
}

func TestSelectJobKeepsPointerWhenSnapshotFails(t *testing.T) {
	fx := newContextFixture(t)
	first := fx.addJob(t, "First")
	second := fx.addJob(t, "Second")

	fx.sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.CoverLetter.Content = "unsaved work"
	})
	fx.outputs.upsertErr = errors.New("io error")

	err := fx.svc.SelectJob(context.Background(), fx.sess, first.ID)
	var pErr *faults.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("want PersistenceError, got=%v", err)
	}
	if active := fx.sess.ActiveJobID(); active == nil || *active != second.ID {
		t.Fatalf("pointer must stay on the old job, got=%v", active)
	}
	if got := fx.sess.Workspace().State(); got.CoverLetter.Content != "unsaved work" {
		t.Fatalf("workspace must keep the unsaved content, got=%q", got.CoverLetter.Content)
	}
}

func TestSelectJobAlreadyActiveIsNoop(t *testing.T) {
	fx := newContextFixture(t)
	job := fx.addJob(t, "Only")
	fx.outputs.calls = nil

	if err := fx.svc.SelectJob(context.Background(), fx.sess, job.ID); err != nil {
		t.Fatalf("SelectJob: %v", err)
	}
	if len(fx.outputs.calls) != 0 {
		t.Fatalf("re-selecting the active job must not touch storage: %v", fx.outputs.calls)
	}
}

func TestSelectJobUnknownIDNotFound(t *testing.T) {
	fx := newContextFixture(t)
	fx.addJob(t, "Only")

	err := fx.svc.SelectJob(context.Background(), fx.sess, uuid.New())
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got=%v", err)
	}
}

func TestDeleteActiveJobClearsWorkspace(t *testing.T) {
	fx := newContextFixture(t)
	job := fx.addJob(t, "Only")
	fx.sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.CoverLetter.Content = "stale"
	})

	if err := fx.svc.DeleteJob(context.Background(), fx.sess, job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if active := fx.sess.ActiveJobID(); active != nil {
		t.Fatalf("active pointer should be cleared, got=%v", active)
	}
	if got := fx.sess.Workspace().State(); got.CoverLetter.Content != "" || got.Status != domain.WorkspaceIdle {
		t.Fatalf("workspace should be reset, got=%+v", got)
	}
	if len(fx.sess.Jobs()) != 0 {
		t.Fatalf("job still cached")
	}
}

func TestDeleteInactiveJobKeepsWorkspace(t *testing.T) {
	fx := newContextFixture(t)
	first := fx.addJob(t, "First")
	fx.addJob(t, "Second")
	fx.sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.CoverLetter.Content = "second letter"
	})

	if err := fx.svc.DeleteJob(context.Background(), fx.sess, first.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if got := fx.sess.Workspace().State(); got.CoverLetter.Content != "second letter" {
		t.Fatalf("deleting an inactive job must not touch the workspace, got=%q", got.CoverLetter.Content)
	}
}

func TestDeleteJobRollsBackOnPersistenceFailure(t *testing.T) {
	fx := newContextFixture(t)
	job := fx.addJob(t, "Only")
	fx.jobs.deleteErr = errors.New("lock timeout")

	err := fx.svc.DeleteJob(context.Background(), fx.sess, job.ID)
	var pErr *faults.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("want PersistenceError, got=%v", err)
	}
	if got := fx.sess.Jobs(); len(got) != 1 || got[0].ID != job.ID {
		t.Fatalf("cache not restored: %+v", got)
	}
	if active := fx.sess.ActiveJobID(); active == nil || *active != job.ID {
		t.Fatalf("active pointer not restored, got=%v", active)
	}
}

func TestUpdateJobOutputsValidation(t *testing.T) {
	fx := newContextFixture(t)
	job := fx.addJob(t, "Only")

	two := []repos.OutputUpsert{
		{ArtifactType: domain.ArtifactResearch, Content: datatypes.JSON(`{}`)},
		{ArtifactType: domain.ArtifactAnalysis, Content: datatypes.JSON(`{}`)},
	}
	if err := fx.svc.UpdateJobOutputs(context.Background(), fx.sess, job.ID, two, false); !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("non-bulk with two patches: want ErrInvalidArgument, got=%v", err)
	}

	bad := []repos.OutputUpsert{{ArtifactType: "portfolio", Content: datatypes.JSON(`{}`)}}
	if err := fx.svc.UpdateJobOutputs(context.Background(), fx.sess, job.ID, bad, true); !errors.Is(err, faults.ErrInvalidArgument) {
		t.Fatalf("unknown artifact: want ErrInvalidArgument, got=%v", err)
	}
}

func TestUpdateJobOutputsRehydratesActiveWorkspace(t *testing.T) {
	fx := newContextFixture(t)
	job := fx.addJob(t, "Only")

	patch := []repos.OutputUpsert{{
		ArtifactType: domain.ArtifactCoverLetter,
		Content:      datatypes.JSON(`{"content":"edited letter","tone":"casual"}`),
	}}
	if err := fx.svc.UpdateJobOutputs(context.Background(), fx.sess, job.ID, patch, false); err != nil {
		t.Fatalf("UpdateJobOutputs: %v", err)
	}

	got := fx.sess.Workspace().State()
	if got.CoverLetter.Content != "edited letter" || got.CoverLetter.Tone != "casual" {
		t.Fatalf("active workspace not refreshed, got=%+v", got.CoverLetter)
	}
}

func TestLoadJobsFillsCache(t *testing.T) {
	fx := newContextFixture(t)
	seed := &domain.JobApplication{ID: uuid.New(), UserID: fx.sess.UserID(), Title: "Seeded", Company: "Acme", Status: domain.JobStatusSaved}
	if _, err := fx.jobs.Upsert(dbctx.Context{Ctx: context.Background()}, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := fx.svc.LoadJobs(context.Background(), fx.sess); err != nil {
		t.Fatalf("LoadJobs: %v", err)
	}
	if got := fx.sess.Jobs(); len(got) != 1 || got[0].Title != "Seeded" {
		t.Fatalf("cache mismatch: %+v", got)
	}
}

func TestAddJobKeepsWorkspaceWhenSnapshotFails(t *testing.T) {
	fx := newContextFixture(t)
	first := fx.addJob(t, "First")
	fx.sess.Workspace().Update(func(ws *domain.WorkspaceState) {
		ws.CoverLetter.Content = "unsaved draft"
	})
	fx.outputs.upsertErr = errors.New("io error")

	_, err := fx.svc.AddJob(context.Background(), fx.sess, JobInput{Title: "Second", Company: "Acme"})
	var pErr *faults.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("want PersistenceError, got=%v", err)
	}
	if active := fx.sess.ActiveJobID(); active == nil || *active != first.ID {
		t.Fatalf("active pointer must stay on the previous job, got=%v", active)
	}
	if got := fx.sess.Workspace().State(); got.CoverLetter.Content != "unsaved draft" {
		t.Fatalf("workspace must keep the unsaved content, got=%q", got.CoverLetter.Content)
	}
}

func TestApplyIfActiveReturnsDetachedState(t *testing.T) {
	fx := newContextFixture(t)
	job := fx.addJob(t, "Only")

	state, applied := fx.sess.ApplyIfActive(job.ID, func(ws *domain.WorkspaceState) {
		ws.CoverLetter.Content = "applied content"
	})
	if !applied {
		t.Fatalf("active job's mutation must apply")
	}

	// A later hydrate for another context must not reach into the snapshot
	// handed back to the caller.
	other := domain.EmptyWorkspace(domain.DefaultWorkspaceDefaults())
	other.CoverLetter.Content = "other content"
	fx.sess.Workspace().Replace(other)

	if state.CoverLetter.Content != "applied content" {
		t.Fatalf("returned state must be detached from the live workspace, got=%q", state.CoverLetter.Content)
	}
}
