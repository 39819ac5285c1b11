package services

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/applyforge/applyforge-backend/internal/data/repos"
	"github.com/applyforge/applyforge-backend/internal/domain"
)

// Persisted payload shapes for the stateful artifact types. Research and
// analysis marshal their domain structs directly.
type coverLetterPayload struct {
	Content string `json:"content"`
	Tone    string `json:"tone,omitempty"`
}

type outreachPayload struct {
	Input            string `json:"input,omitempty"`
	GeneratedMessage string `json:"generated_message"`
}

type interviewPrepPayload struct {
	Questions []domain.InterviewQuestion `json:"questions"`
}

// BuildSnapshot maps each populated workspace field to its artifact-type
// output patch. Empty fields are omitted so a snapshot never overwrites
// previously saved content with blanks. Pure; no I/O.
func BuildSnapshot(ws domain.WorkspaceState) []repos.OutputUpsert {
	var patches []repos.OutputUpsert

	if ws.Research != nil {
		if raw, err := json.Marshal(ws.Research); err == nil {
			patches = append(patches, repos.OutputUpsert{
				ArtifactType: domain.ArtifactResearch,
				Content:      datatypes.JSON(raw),
			})
		}
	}
	if ws.Analysis != nil {
		if raw, err := json.Marshal(ws.Analysis); err == nil {
			patches = append(patches, repos.OutputUpsert{
				ArtifactType: domain.ArtifactAnalysis,
				Content:      datatypes.JSON(raw),
			})
		}
	}
	if strings.TrimSpace(ws.CoverLetter.Content) != "" {
		raw, err := json.Marshal(coverLetterPayload{
			Content: ws.CoverLetter.Content,
			Tone:    ws.CoverLetter.Tone,
		})
		if err == nil {
			patches = append(patches, repos.OutputUpsert{
				ArtifactType: domain.ArtifactCoverLetter,
				Content:      datatypes.JSON(raw),
			})
		}
	}
	if strings.TrimSpace(ws.Outreach.GeneratedMessage) != "" {
		raw, err := json.Marshal(outreachPayload{
			Input:            ws.Outreach.Input,
			GeneratedMessage: ws.Outreach.GeneratedMessage,
		})
		if err == nil {
			patches = append(patches, repos.OutputUpsert{
				ArtifactType: domain.ArtifactOutreachMessage,
				Content:      datatypes.JSON(raw),
			})
		}
	}
	if len(ws.InterviewPrep.Questions) > 0 {
		raw, err := json.Marshal(interviewPrepPayload{Questions: ws.InterviewPrep.Questions})
		if err == nil {
			patches = append(patches, repos.OutputUpsert{
				ArtifactType: domain.ArtifactInterviewPrep,
				Content:      datatypes.JSON(raw),
			})
		}
	}

	return patches
}

// HydrateWorkspace reconstructs a full workspace state from a job's stored
// output rows. Missing or malformed artifacts fall back to the supplied
// defaults so nested shapes are never nil downstream. Pure; no I/O.
func HydrateWorkspace(outputs []*domain.JobOutputRecord, resumeText string, defaults domain.WorkspaceDefaults) domain.WorkspaceState {
	state := domain.EmptyWorkspace(defaults)
	state.ResumeText = resumeText

	byType := make(map[string]*domain.JobOutputRecord, len(outputs))
	for _, row := range outputs {
		if row != nil {
			byType[row.ArtifactType] = row
		}
	}

	hasContent := false

	if row := byType[domain.ArtifactResearch]; row != nil && len(row.Content) > 0 {
		var research domain.ResearchResult
		if err := json.Unmarshal(row.Content, &research); err == nil {
			state.Research = &research
			hasContent = true
		}
	}
	if row := byType[domain.ArtifactAnalysis]; row != nil && len(row.Content) > 0 {
		var analysis domain.FitAnalysis
		if err := json.Unmarshal(row.Content, &analysis); err == nil {
			state.Analysis = &analysis
			hasContent = true
		}
	}
	if row := byType[domain.ArtifactCoverLetter]; row != nil && len(row.Content) > 0 {
		var payload coverLetterPayload
		if err := json.Unmarshal(row.Content, &payload); err == nil && payload.Content != "" {
			tone := payload.Tone
			if tone == "" {
				tone = defaults.CoverLetterTone
			}
			state.CoverLetter = domain.CoverLetterState{Content: payload.Content, Tone: tone}
			hasContent = true
		}
	}
	if row := byType[domain.ArtifactOutreachMessage]; row != nil && len(row.Content) > 0 {
		var payload outreachPayload
		if err := json.Unmarshal(row.Content, &payload); err == nil && payload.GeneratedMessage != "" {
			input := payload.Input
			if input == "" {
				input = defaults.OutreachInput
			}
			state.Outreach = domain.OutreachState{Input: input, GeneratedMessage: payload.GeneratedMessage}
			hasContent = true
		}
	}
	if row := byType[domain.ArtifactInterviewPrep]; row != nil && len(row.Content) > 0 {
		var payload interviewPrepPayload
		if err := json.Unmarshal(row.Content, &payload); err == nil && len(payload.Questions) > 0 {
			state.InterviewPrep = domain.InterviewPrepState{Questions: payload.Questions}
			hasContent = true
		}
	}

	if hasContent {
		state.Status = domain.WorkspaceCompleted
	}
	return state
}
