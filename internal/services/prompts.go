package services

import (
	"fmt"
	"strings"

	"github.com/applyforge/applyforge-backend/internal/domain"
)

const researchSystemPrompt = `You are a company research assistant. Respond with a JSON object with keys
"company_overview" (string), "products" (array of strings), "culture" (string),
"recent_news" (array of strings) and "sources" (array of strings). Keep the
overview under 200 words and only include facts you are confident about.`

const analysisSystemPrompt = `You are a candidate-fit analyst. Compare the resume against the job posting
and respond with a JSON object with keys "matched_skills" (array of strings),
"missing_skills" (array of strings), "summary" (string) and "fit_score"
(integer 0-100).`

const outreachSystemPrompt = `You write short, specific outreach messages to recruiters and hiring
managers. Plain text, no subject line, under 150 words, no placeholders.`

const interviewPrepSystemPrompt = `You prepare candidates for interviews. Respond with a JSON object with key
"questions": an array of objects with "question", "suggested_answer" and
"category" (one of "behavioral", "technical", "company"). Produce 8 questions
grounded in the job description.`

func coverLetterSystemPrompt(tone string) string {
	return fmt.Sprintf(`You write cover letters in a %s tone. Plain text, three to four short
paragraphs, no address block, no placeholders. Ground every claim in the
resume provided.`, tone)
}

func jobHeader(job *domain.JobApplication) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\nCompany: %s\n", job.Title, job.Company)
	if job.CompanyURL != nil && *job.CompanyURL != "" {
		fmt.Fprintf(&b, "Company URL: %s\n", *job.CompanyURL)
	}
	if job.Description != "" {
		fmt.Fprintf(&b, "\nJob description:\n%s\n", job.Description)
	}
	return b.String()
}

func researchUserPrompt(job *domain.JobApplication) string {
	return "Research the following company for a job applicant.\n\n" + jobHeader(job)
}

func analysisUserPrompt(job *domain.JobApplication, resumeText string) string {
	var b strings.Builder
	b.WriteString("Assess how well this candidate fits the posting.\n\n")
	b.WriteString(jobHeader(job))
	if resumeText != "" {
		fmt.Fprintf(&b, "\nResume:\n%s\n", resumeText)
	} else {
		b.WriteString("\nNo resume was provided; base the analysis on the posting alone and say so in the summary.\n")
	}
	return b.String()
}

func coverLetterUserPrompt(job *domain.JobApplication, state domain.WorkspaceState) string {
	var b strings.Builder
	b.WriteString("Write a cover letter for this application.\n\n")
	b.WriteString(jobHeader(job))
	if state.ResumeText != "" {
		fmt.Fprintf(&b, "\nResume:\n%s\n", state.ResumeText)
	}
	if state.Research != nil && state.Research.CompanyOverview != "" {
		fmt.Fprintf(&b, "\nCompany research:\n%s\n", state.Research.CompanyOverview)
	}
	if state.Analysis != nil && state.Analysis.Summary != "" {
		fmt.Fprintf(&b, "\nFit summary:\n%s\n", state.Analysis.Summary)
	}
	return b.String()
}

func outreachUserPrompt(job *domain.JobApplication, state domain.WorkspaceState, input string) string {
	var b strings.Builder
	b.WriteString("Write an outreach message for this application.\n\n")
	b.WriteString(jobHeader(job))
	if input != "" {
		fmt.Fprintf(&b, "\nRecipient context from the applicant:\n%s\n", input)
	}
	if state.Analysis != nil && len(state.Analysis.MatchedSkills) > 0 {
		fmt.Fprintf(&b, "\nStrongest matched skills: %s\n", strings.Join(state.Analysis.MatchedSkills, ", "))
	}
	return b.String()
}

func interviewPrepUserPrompt(job *domain.JobApplication, state domain.WorkspaceState) string {
	var b strings.Builder
	b.WriteString("Prepare interview questions for this application.\n\n")
	b.WriteString(jobHeader(job))
	if state.Analysis != nil && len(state.Analysis.MissingSkills) > 0 {
		fmt.Fprintf(&b, "\nSkill gaps to probe: %s\n", strings.Join(state.Analysis.MissingSkills, ", "))
	}
	if state.ResumeText != "" {
		fmt.Fprintf(&b, "\nResume:\n%s\n", state.ResumeText)
	}
	return b.String()
}
