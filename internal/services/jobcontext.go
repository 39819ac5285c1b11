package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

// ContextSession is one session's view of the engine: the cached job list,
// the active-job pointer, and the workspace for the active job. All mutation
// goes through JobContextService under the session lock, so the workspace has
// a single writer context.
type ContextSession struct {
	mu sync.Mutex

	userID    uuid.UUID
	sessionID uuid.UUID

	jobs        []*domain.JobApplication
	activeJobID *uuid.UUID
	workspace   *Workspace
	defaults    domain.WorkspaceDefaults
}

func (cs *ContextSession) UserID() uuid.UUID    { return cs.userID }
func (cs *ContextSession) SessionID() uuid.UUID { return cs.sessionID }
func (cs *ContextSession) Workspace() *Workspace {
	return cs.workspace
}

// Jobs returns a copy of the cached job list, newest first.
func (cs *ContextSession) Jobs() []*domain.JobApplication {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*domain.JobApplication, len(cs.jobs))
	copy(out, cs.jobs)
	return out
}

func (cs *ContextSession) ActiveJobID() *uuid.UUID {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.activeJobID == nil {
		return nil
	}
	id := *cs.activeJobID
	return &id
}

// ApplyIfActive mutates the workspace only when jobID is still the active
// job, and reports whether the mutation was applied. Generation results are
// tagged with the job they were issued for and routed through here so a
// completion that lands after a context switch cannot contaminate another
// job's workspace. The returned state is the post-mutation snapshot; callers
// that persist must write that snapshot, not re-read the live workspace,
// since a switch can land between the apply and the write.
func (cs *ContextSession) ApplyIfActive(jobID uuid.UUID, mutate func(*domain.WorkspaceState)) (domain.WorkspaceState, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.activeJobID == nil || *cs.activeJobID != jobID {
		return domain.WorkspaceState{}, false
	}
	return cs.workspace.Update(mutate), true
}

func (cs *ContextSession) findJobLocked(jobID uuid.UUID) (int, *domain.JobApplication) {
	for i, job := range cs.jobs {
		if job != nil && job.ID == jobID {
			return i, job
		}
	}
	return -1, nil
}

// JobInput is the user-supplied shape for a new job target.
type JobInput struct {
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Description    string     `json:"description"`
	CompanyURL     *string    `json:"company_url,omitempty"`
	SourceURL      *string    `json:"source_url,omitempty"`
	ContextName    string     `json:"context_name"`
	LinkedResumeID *uuid.UUID `json:"linked_resume_id,omitempty"`
}

type JobContextService interface {
	// Session returns the per-session context, creating it on first use.
	Session(userID, sessionID uuid.UUID) *ContextSession
	// LoadJobs refreshes the session's job cache from storage.
	LoadJobs(ctx context.Context, sess *ContextSession) error
	// AddJob appends optimistically, marks the job active, and awaits the
	// persistence write; on failure it rolls both back synchronously and
	// re-raises. A failed snapshot of the previous job's workspace also
	// rolls back the activation so no unsaved edits are dropped.
	AddJob(ctx context.Context, sess *ContextSession, input JobInput) (*domain.JobApplication, error)
	// SelectJob snapshots the current workspace into the previously active
	// job's outputs, hydrates the target's outputs, replaces the workspace
	// atomically, then moves the active pointer. The ordering is mandatory.
	SelectJob(ctx context.Context, sess *ContextSession, jobID uuid.UUID) error
	// DeleteJob removes the job and its outputs; deleting the active job
	// clears the workspace to its empty default.
	DeleteJob(ctx context.Context, sess *ContextSession, jobID uuid.UUID) error
	// UpdateJobOutputs writes artifact patches for a job through the gateway.
	// With bulk set the patches land in one atomic batch; otherwise exactly
	// one patch is accepted.
	UpdateJobOutputs(ctx context.Context, sess *ContextSession, jobID uuid.UUID, patches []repos.OutputUpsert, bulk bool) error
}

type jobContextService struct {
	log     *logger.Logger
	jobs    repos.JobRepo
	outputs repos.JobOutputRepo
	resumes repos.ResumeRepo

	mu       sync.Mutex
	sessions map[uuid.UUID]*ContextSession

	defaults domain.WorkspaceDefaults
}

func NewJobContextService(
	baseLog *logger.Logger,
	jobs repos.JobRepo,
	outputs repos.JobOutputRepo,
	resumes repos.ResumeRepo,
	defaults domain.WorkspaceDefaults,
) JobContextService {
	return &jobContextService{
		log:      baseLog.With("service", "JobContextService"),
		jobs:     jobs,
		outputs:  outputs,
		resumes:  resumes,
		sessions: map[uuid.UUID]*ContextSession{},
		defaults: defaults,
	}
}

func (s *jobContextService) Session(userID, sessionID uuid.UUID) *ContextSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	sess := &ContextSession{
		userID:    userID,
		sessionID: sessionID,
		workspace: NewWorkspace(s.defaults),
		defaults:  s.defaults,
	}
	s.sessions[sessionID] = sess
	return sess
}

func (s *jobContextService) LoadJobs(ctx context.Context, sess *ContextSession) error {
	jobs, err := s.jobs.ListByUserIDWithOutputs(dbctx.Context{Ctx: ctx}, sess.userID)
	if err != nil {
		return faults.NewPersistenceError("job_list_failed", err)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.jobs = jobs
	return nil
}

func (s *jobContextService) AddJob(ctx context.Context, sess *ContextSession, input JobInput) (*domain.JobApplication, error) {
	title := strings.TrimSpace(input.Title)
	company := strings.TrimSpace(input.Company)
	if title == "" || company == "" {
		return nil, fmt.Errorf("%w: title and company are required", faults.ErrInvalidArgument)
	}
	contextName := strings.TrimSpace(input.ContextName)
	if contextName == "" {
		contextName = fmt.Sprintf("%s @ %s", title, company)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	job := &domain.JobApplication{
		ID:             uuid.New(),
		UserID:         sess.userID,
		Title:          title,
		Company:        company,
		Description:    input.Description,
		CompanyURL:     input.CompanyURL,
		SourceURL:      input.SourceURL,
		ContextName:    contextName,
		LinkedResumeID: input.LinkedResumeID,
		Status:         domain.JobStatusSaved,
	}

	// Snapshot of the outgoing workspace, captured before any mutation so a
	// successful add does not lose the previous job's unsaved edits.
	prevActive := sess.activeJobID
	var prevPatches []repos.OutputUpsert
	if prevActive != nil {
		prevPatches = BuildSnapshot(sess.workspace.State())
	}

	// Optimistic: prepend and activate.
	sess.jobs = append([]*domain.JobApplication{job}, sess.jobs...)
	newActive := job.ID
	sess.activeJobID = &newActive

	if _, err := s.jobs.Upsert(dbctx.Context{Ctx: ctx}, job); err != nil {
		// Rollback in the same error-handling block that caught the failure,
		// before the lock is released, so no other switch can race in.
		sess.jobs = sess.jobs[1:]
		sess.activeJobID = prevActive
		s.log.Warn("AddJob persistence failed, rolled back optimistic state", "error", err)
		return nil, faults.NewPersistenceError("job_upsert_failed", err)
	}

	// The job row is durable now; dependent writes may reference it.
	if prevActive != nil && len(prevPatches) > 0 {
		if err := s.outputs.UpsertBatch(dbctx.Context{Ctx: ctx}, *prevActive, prevPatches); err != nil {
			// The new row stays durable and cached, but activation rolls back
			// and the workspace is left alone so the previous job's unsaved
			// edits are not lost on top of the failed snapshot.
			sess.activeJobID = prevActive
			s.log.Warn("AddJob snapshot of previous workspace failed, activation rolled back", "error", err)
			return nil, faults.NewPersistenceError("workspace_snapshot_failed", err)
		}
	}

	fresh := domain.EmptyWorkspace(sess.defaults)
	fresh.ResumeText = sess.workspace.State().ResumeText
	sess.workspace.Replace(fresh)

	return job, nil
}

func (s *jobContextService) SelectJob(ctx context.Context, sess *ContextSession, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return faults.ErrInvalidArgument
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.activeJobID != nil && *sess.activeJobID == jobID {
		return nil
	}

	_, target := sess.findJobLocked(jobID)
	if target == nil {
		row, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, jobID)
		if err != nil {
			return faults.NewPersistenceError("job_load_failed", err)
		}
		if row == nil || row.UserID != sess.userID {
			return faults.ErrNotFound
		}
		target = row
		sess.jobs = append(sess.jobs, row)
	}

	// (1) Snapshot the outgoing workspace into the previously active job.
	if sess.activeJobID != nil {
		patches := BuildSnapshot(sess.workspace.State())
		if len(patches) > 0 {
			if err := s.outputs.UpsertBatch(dbctx.Context{Ctx: ctx}, *sess.activeJobID, patches); err != nil {
				// Active pointer and workspace stay put; in-memory state is
				// still consistent with what is durable.
				return faults.NewPersistenceError("workspace_snapshot_failed", err)
			}
		}
	}

	// (2) Hydrate from the target's stored outputs.
	rows, err := s.outputs.GetByJobID(dbctx.Context{Ctx: ctx}, jobID)
	if err != nil {
		return faults.NewPersistenceError("outputs_load_failed", err)
	}
	resumeText := sess.workspace.State().ResumeText
	if resumeText == "" {
		if resume, err := s.resumes.GetByUserID(dbctx.Context{Ctx: ctx}, sess.userID); err == nil && resume != nil {
			resumeText = resume.Text
		}
	}
	state := HydrateWorkspace(rows, resumeText, sess.defaults)

	// (3) Single atomic replacement, (4) then move the pointer.
	sess.workspace.Replace(state)
	active := jobID
	sess.activeJobID = &active
	return nil
}

func (s *jobContextService) DeleteJob(ctx context.Context, sess *ContextSession, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return faults.ErrInvalidArgument
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	idx, job := sess.findJobLocked(jobID)
	if job == nil {
		return faults.ErrNotFound
	}

	prevActive := sess.activeJobID
	wasActive := prevActive != nil && *prevActive == jobID

	// Optimistic removal.
	sess.jobs = append(sess.jobs[:idx], sess.jobs[idx+1:]...)
	if wasActive {
		sess.activeJobID = nil
	}

	if err := s.jobs.Delete(dbctx.Context{Ctx: ctx}, jobID); err != nil {
		restored := make([]*domain.JobApplication, 0, len(sess.jobs)+1)
		restored = append(restored, sess.jobs[:idx]...)
		restored = append(restored, job)
		restored = append(restored, sess.jobs[idx:]...)
		sess.jobs = restored
		sess.activeJobID = prevActive
		s.log.Warn("DeleteJob persistence failed, rolled back optimistic state", "error", err)
		return faults.NewPersistenceError("job_delete_failed", err)
	}

	if wasActive {
		// No stale artifacts attached to no job.
		sess.workspace.Clear(sess.defaults)
	}
	return nil
}

func (s *jobContextService) UpdateJobOutputs(ctx context.Context, sess *ContextSession, jobID uuid.UUID, patches []repos.OutputUpsert, bulk bool) error {
	if jobID == uuid.Nil || len(patches) == 0 {
		return faults.ErrInvalidArgument
	}
	if !bulk && len(patches) != 1 {
		return fmt.Errorf("%w: non-bulk update takes exactly one patch", faults.ErrInvalidArgument)
	}
	for _, p := range patches {
		if !domain.ValidArtifactType(p.ArtifactType) {
			return fmt.Errorf("%w: unknown artifact type %q", faults.ErrInvalidArgument, p.ArtifactType)
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if _, job := sess.findJobLocked(jobID); job == nil {
		row, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, jobID)
		if err != nil {
			return faults.NewPersistenceError("job_load_failed", err)
		}
		if row == nil || row.UserID != sess.userID {
			return faults.ErrNotFound
		}
	}

	if err := s.outputs.UpsertBatch(dbctx.Context{Ctx: ctx}, jobID, patches); err != nil {
		return faults.NewPersistenceError("outputs_upsert_failed", err)
	}

	// Keep the live surface in sync when the patched job is the active one.
	if sess.activeJobID != nil && *sess.activeJobID == jobID {
		rows, err := s.outputs.GetByJobID(dbctx.Context{Ctx: ctx}, jobID)
		if err != nil {
			return faults.NewPersistenceError("outputs_load_failed", err)
		}
		state := HydrateWorkspace(rows, sess.workspace.State().ResumeText, sess.defaults)
		sess.workspace.Replace(state)
	}
	return nil
}
