package domain

// WorkspaceStatus is the generation pipeline state for the active job.
// Transitions: idle, parsing_resume, researching, analyzing, generating,
// completed, with error reachable from any non-idle state.
type WorkspaceStatus string

const (
	WorkspaceIdle          WorkspaceStatus = "idle"
	WorkspaceParsingResume WorkspaceStatus = "parsing_resume"
	WorkspaceResearching   WorkspaceStatus = "researching"
	WorkspaceAnalyzing     WorkspaceStatus = "analyzing"
	WorkspaceGenerating    WorkspaceStatus = "generating"
	WorkspaceCompleted     WorkspaceStatus = "completed"
	WorkspaceError         WorkspaceStatus = "error"
)

type ResearchResult struct {
	CompanyOverview string   `json:"company_overview"`
	Products        []string `json:"products,omitempty"`
	Culture         string   `json:"culture,omitempty"`
	RecentNews      []string `json:"recent_news,omitempty"`
	Sources         []string `json:"sources,omitempty"`
}

type FitAnalysis struct {
	MatchedSkills []string `json:"matched_skills,omitempty"`
	MissingSkills []string `json:"missing_skills,omitempty"`
	Summary       string   `json:"summary"`
	FitScore      int      `json:"fit_score"`
}

type CoverLetterState struct {
	Content      string `json:"content"`
	Tone         string `json:"tone"`
	IsGenerating bool   `json:"is_generating"`
}

type OutreachState struct {
	Input            string `json:"input"`
	GeneratedMessage string `json:"generated_message"`
	IsGenerating     bool   `json:"is_generating"`
}

type InterviewQuestion struct {
	Question        string `json:"question"`
	SuggestedAnswer string `json:"suggested_answer,omitempty"`
	Category        string `json:"category,omitempty"`
}

type InterviewPrepState struct {
	Questions    []InterviewQuestion `json:"questions,omitempty"`
	IsGenerating bool                `json:"is_generating"`
}

// WorkspaceState is the live editing surface for the currently active job.
// It is derived entirely from the active job's stored outputs and is never
// persisted on its own.
type WorkspaceState struct {
	Status        WorkspaceStatus    `json:"status"`
	ResumeText    string             `json:"resume_text"`
	Research      *ResearchResult    `json:"research,omitempty"`
	Analysis      *FitAnalysis       `json:"analysis,omitempty"`
	CoverLetter   CoverLetterState   `json:"cover_letter"`
	Outreach      OutreachState      `json:"outreach"`
	InterviewPrep InterviewPrepState `json:"interview_prep"`
}

// WorkspaceDefaults supplies the input shapes substituted for missing
// structured sub-fields on hydration, so nested state is never nil downstream.
type WorkspaceDefaults struct {
	CoverLetterTone string
	OutreachInput   string
}

func DefaultWorkspaceDefaults() WorkspaceDefaults {
	return WorkspaceDefaults{CoverLetterTone: "professional"}
}

// EmptyWorkspace is the state applied when no job is active.
func EmptyWorkspace(defaults WorkspaceDefaults) WorkspaceState {
	return WorkspaceState{
		Status:      WorkspaceIdle,
		CoverLetter: CoverLetterState{Tone: defaults.CoverLetterTone},
		Outreach:    OutreachState{Input: defaults.OutreachInput},
	}
}
