package database

import (
	"time"

	"gorm.io/datatypes"
)

// ApplicationStatus is the recruiter-facing lifecycle of an application.
type ApplicationStatus string

const (
	StatusSubmitted          ApplicationStatus = "submitted"
	StatusInReview           ApplicationStatus = "in-review"
	StatusShortlisted        ApplicationStatus = "shortlisted"
	StatusRejected           ApplicationStatus = "rejected"
	StatusInterviewScheduled ApplicationStatus = "interview-scheduled"
)

// ApplicationStatuses lists every valid status in display order.
var ApplicationStatuses = []ApplicationStatus{
	StatusSubmitted,
	StatusInReview,
	StatusShortlisted,
	StatusRejected,
	StatusInterviewScheduled,
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AgentType names the stage that produced an AgentLog entry.
type AgentType string

const (
	AgentResumeParser         AgentType = "RESUME_PARSER"
	AgentSkillMatcher         AgentType = "SKILL_MATCHER"
	AgentCoverLetterGenerator AgentType = "COVER_LETTER_GENERATOR"
	AgentDocumentTranscriber  AgentType = "DOCUMENT_TRANSCRIBER"
)

// Tenant is a recruiter account owning job postings and the AI credential
// used for their applicants.
type Tenant struct {
	ID             string `gorm:"primaryKey;size:36"`
	Name           string `gorm:"size:255"`
	APIKey         string `gorm:"size:255"`
	Model          string `gorm:"size:64"`
	SchedulingLink string `gorm:"size:512"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// JobPosting is a tenant-owned job description. DescriptionText may be empty
// when only a document was uploaded; ExtractedText caches its transcription.
type JobPosting struct {
	ID               string `gorm:"primaryKey;size:36"`
	TenantID         string `gorm:"index;size:36"`
	Title            string `gorm:"size:255"`
	DescriptionText  string `gorm:"type:text"`
	DocumentKey      string `gorm:"size:512"`
	DocumentURL      string `gorm:"size:1024"`
	DocumentMIMEType string `gorm:"size:128"`
	ExtractedText    string `gorm:"type:text"`
	PublicURL        string `gorm:"size:512"`
	CreatedAt        time.Time
}

// Candidate is created at account provisioning and never changed by the pipeline.
type Candidate struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:255"`
	Email     string `gorm:"uniqueIndex;size:255"`
	CreatedAt time.Time
}

// ResumeArtifact is the immutable output of résumé extraction.
type ResumeArtifact struct {
	ID          string                      `gorm:"primaryKey;size:36"`
	CandidateID string                      `gorm:"index;size:36"`
	FileKey     string                      `gorm:"size:512"`
	FileURL     string                      `gorm:"size:1024"`
	FileName    string                      `gorm:"size:255"`
	MIMEType    string                      `gorm:"size:128"`
	FullText    string                      `gorm:"type:text"`
	Summary     string                      `gorm:"type:text"`
	Skills      datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Strengths   datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Weaknesses  datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

// Application is created by match scoring. Only CoverLetter and Status change
// afterwards.
type Application struct {
	ID            string                      `gorm:"primaryKey;size:36"`
	JobPostingID  string                      `gorm:"index;size:36"`
	ResumeID      string                      `gorm:"index;size:36"`
	CandidateID   string                      `gorm:"index;size:36"`
	MatchScore    int                         `gorm:"not null"`
	MatchedSkills datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	MissingSkills datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Reasoning     string                      `gorm:"type:text"`
	Feedback      string                      `gorm:"type:text"`
	CoverLetter   *string                     `gorm:"type:text"`
	Status        ApplicationStatus           `gorm:"size:32;index"`
	SubmittedAt   time.Time
}

// AgentLog is an audit record of one successful stage call.
type AgentLog struct {
	ID        string         `gorm:"primaryKey;size:36"`
	TenantID  string         `gorm:"index;size:36"`
	AgentType AgentType      `gorm:"size:64;index"`
	FileName  string         `gorm:"size:255"`
	RawInput  string         `gorm:"type:text"`
	Output    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// Models lists every table managed by Migrate.
func Models() []any {
	return []any{
		&Tenant{},
		&JobPosting{},
		&Candidate{},
		&ResumeArtifact{},
		&Application{},
		&AgentLog{},
	}
}
