package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/domain"
	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/dbctx"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
	"github.com/applyforge/applyforge-backend/internal/platform/requestdata"
)

// GenerationClient is the model backend. Implementations live under
// internal/platform/aiclient; tests substitute fakes.
type GenerationClient interface {
	// GenerateJSON asks for a JSON object response and unmarshals it into out.
	GenerateJSON(ctx context.Context, system, user string, out any) error
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// GenerationService runs the model-backed pipeline for the active job. Every
// operation passes the same gate order: rate limit, then feature quota, then
// the backend call. The quota increments before the attempt, so failures
// spend a slot too. Results carry the id of the job they were issued for and
// are discarded outright when that job is no longer active.
type GenerationService interface {
	RunResearchAndAnalysis(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID) error
	GenerateCoverLetter(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID, tone string) error
	GenerateOutreach(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID, input string) error
	GenerateInterviewPrep(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID) error
}

type generationService struct {
	log     *logger.Logger
	client  GenerationClient
	limiter RateLimiter
	quota   QuotaService
	outputs OutputPersister
}

// OutputPersister is the slice of the output repo generation needs.
type OutputPersister interface {
	UpsertBatch(dbc dbctx.Context, jobID uuid.UUID, patches []repos.OutputUpsert) error
}

func NewGenerationService(
	baseLog *logger.Logger,
	client GenerationClient,
	limiter RateLimiter,
	quota QuotaService,
	outputs OutputPersister,
) GenerationService {
	return &generationService{
		log:     baseLog.With("service", "GenerationService"),
		client:  client,
		limiter: limiter,
		quota:   quota,
		outputs: outputs,
	}
}

func (s *generationService) gate(ctx context.Context, actor *requestdata.RequestData, jobID uuid.UUID, operationClass, artifactType string) error {
	if actor == nil || actor.UserID == uuid.Nil {
		return faults.ErrUnauthorized
	}
	if !actor.IsPrivileged() {
		if err := s.limiter.Check(ctx, actor.UserID, operationClass); err != nil {
			return err
		}
	}
	return s.quota.CheckFeatureLimit(dbctx.Context{Ctx: ctx}, actor, jobID, artifactType)
}

// activeJob resolves the job the request targets and requires it to be the
// session's active one. Generation only ever writes into the active context.
func (s *generationService) activeJob(sess *ContextSession, jobID uuid.UUID) (*domain.JobApplication, error) {
	active := sess.ActiveJobID()
	if active == nil || *active != jobID {
		return nil, fmt.Errorf("%w: job is not the active context", faults.ErrInvalidArgument)
	}
	for _, job := range sess.Jobs() {
		if job.ID == jobID {
			return job, nil
		}
	}
	return nil, faults.ErrNotFound
}

func (s *generationService) RunResearchAndAnalysis(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID) error {
	job, err := s.activeJob(sess, jobID)
	if err != nil {
		return err
	}
	if err := s.gate(ctx, actor, jobID, OpCompanyResearch, domain.ArtifactResearch); err != nil {
		return err
	}
	if err := s.gate(ctx, actor, jobID, OpFitAnalysis, domain.ArtifactAnalysis); err != nil {
		return err
	}

	// Resume preparation is the first pipeline phase; the analysis leg
	// consumes the normalized text.
	sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.Status = domain.WorkspaceParsingResume
	})
	resumeText := strings.TrimSpace(sess.Workspace().State().ResumeText)
	sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.Status = domain.WorkspaceResearching
	})

	var research domain.ResearchResult
	var analysis domain.FitAnalysis

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.client.GenerateJSON(gctx, researchSystemPrompt, researchUserPrompt(job), &research); err != nil {
			return err
		}
		// Research is in; the analysis leg is what remains.
		sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
			ws.Status = domain.WorkspaceAnalyzing
		})
		return nil
	})
	g.Go(func() error {
		return s.client.GenerateJSON(gctx, analysisSystemPrompt, analysisUserPrompt(job, resumeText), &analysis)
	})
	if err := g.Wait(); err != nil {
		sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
			ws.Status = domain.WorkspaceError
		})
		return &faults.GenerationError{OperationClass: OpCompanyResearch, Err: err}
	}

	state, applied := sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.Research = &research
		ws.Analysis = &analysis
		ws.Status = domain.WorkspaceCompleted
	})
	if !applied {
		s.log.Info("discarding research results for inactive job", "job_id", jobID.String())
		return nil
	}
	return s.persist(ctx, jobID, state)
}

func (s *generationService) GenerateCoverLetter(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID, tone string) error {
	job, err := s.activeJob(sess, jobID)
	if err != nil {
		return err
	}
	if err := s.gate(ctx, actor, jobID, OpCoverLetter, domain.ArtifactCoverLetter); err != nil {
		return err
	}

	state := sess.Workspace().State()
	if strings.TrimSpace(tone) == "" {
		tone = state.CoverLetter.Tone
	}
	sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.Status = domain.WorkspaceGenerating
		ws.CoverLetter.IsGenerating = true
		ws.CoverLetter.Tone = tone
	})

	content, genErr := s.client.GenerateText(ctx, coverLetterSystemPrompt(tone), coverLetterUserPrompt(job, state))
	if genErr != nil {
		sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
			ws.Status = domain.WorkspaceError
			ws.CoverLetter.IsGenerating = false
		})
		return &faults.GenerationError{OperationClass: OpCoverLetter, Err: genErr}
	}

	state, applied := sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.CoverLetter = domain.CoverLetterState{Content: content, Tone: tone}
		ws.Status = domain.WorkspaceCompleted
	})
	if !applied {
		s.log.Info("discarding cover letter for inactive job", "job_id", jobID.String())
		return nil
	}
	return s.persist(ctx, jobID, state)
}

func (s *generationService) GenerateOutreach(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID, input string) error {
	job, err := s.activeJob(sess, jobID)
	if err != nil {
		return err
	}
	if err := s.gate(ctx, actor, jobID, OpOutreachMessage, domain.ArtifactOutreachMessage); err != nil {
		return err
	}

	state := sess.Workspace().State()
	if strings.TrimSpace(input) == "" {
		input = state.Outreach.Input
	}
	sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.Status = domain.WorkspaceGenerating
		ws.Outreach.IsGenerating = true
		ws.Outreach.Input = input
	})

	message, genErr := s.client.GenerateText(ctx, outreachSystemPrompt, outreachUserPrompt(job, state, input))
	if genErr != nil {
		sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
			ws.Status = domain.WorkspaceError
			ws.Outreach.IsGenerating = false
		})
		return &faults.GenerationError{OperationClass: OpOutreachMessage, Err: genErr}
	}

	state, applied := sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.Outreach = domain.OutreachState{Input: input, GeneratedMessage: message}
		ws.Status = domain.WorkspaceCompleted
	})
	if !applied {
		s.log.Info("discarding outreach message for inactive job", "job_id", jobID.String())
		return nil
	}
	return s.persist(ctx, jobID, state)
}

func (s *generationService) GenerateInterviewPrep(ctx context.Context, actor *requestdata.RequestData, sess *ContextSession, jobID uuid.UUID) error {
	job, err := s.activeJob(sess, jobID)
	if err != nil {
		return err
	}
	if err := s.gate(ctx, actor, jobID, OpInterviewPrep, domain.ArtifactInterviewPrep); err != nil {
		return err
	}

	state := sess.Workspace().State()
	sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.Status = domain.WorkspaceGenerating
		ws.InterviewPrep.IsGenerating = true
	})

	var prep interviewPrepPayload
	if err := s.client.GenerateJSON(ctx, interviewPrepSystemPrompt, interviewPrepUserPrompt(job, state), &prep); err != nil {
		sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
			ws.Status = domain.WorkspaceError
			ws.InterviewPrep.IsGenerating = false
		})
		return &faults.GenerationError{OperationClass: OpInterviewPrep, Err: err}
	}

	state, applied := sess.ApplyIfActive(jobID, func(ws *domain.WorkspaceState) {
		ws.InterviewPrep = domain.InterviewPrepState{Questions: prep.Questions}
		ws.Status = domain.WorkspaceCompleted
	})
	if !applied {
		s.log.Info("discarding interview prep for inactive job", "job_id", jobID.String())
		return nil
	}
	return s.persist(ctx, jobID, state)
}

// persist writes the applied snapshot into the job's output rows. It takes
// the state returned by the guarded apply instead of re-reading the live
// workspace; a context switch landing after the apply must not leak the new
// context's content into this job's rows. A failed write is surfaced but the
// workspace keeps the generated content.
func (s *generationService) persist(ctx context.Context, jobID uuid.UUID, state domain.WorkspaceState) error {
	patches := BuildSnapshot(state)
	if len(patches) == 0 {
		return nil
	}
	if err := s.outputs.UpsertBatch(dbctx.Context{Ctx: ctx}, jobID, patches); err != nil {
		s.log.Warn("generated output persistence failed", "job_id", jobID.String(), "error", err)
		return faults.NewPersistenceError("outputs_upsert_failed", err)
	}
	return nil
}
