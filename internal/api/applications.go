package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/pipeline"
)

type applicationResponse struct {
	ID            string    `json:"id"`
	JobPostingID  string    `json:"posting_id"`
	ResumeID      string    `json:"resume_id"`
	CandidateID   string    `json:"candidate_id"`
	MatchScore    int       `json:"match_score"`
	MatchedSkills []string  `json:"matched_skills"`
	MissingSkills []string  `json:"missing_skills"`
	Reasoning     string    `json:"reasoning"`
	Feedback      string    `json:"feedback"`
	CoverLetter   *string   `json:"cover_letter"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func newApplicationResponse(a *database.Application) applicationResponse {
	return applicationResponse{
		ID:            a.ID,
		JobPostingID:  a.JobPostingID,
		ResumeID:      a.ResumeID,
		CandidateID:   a.CandidateID,
		MatchScore:    a.MatchScore,
		MatchedSkills: nonNil(a.MatchedSkills),
		MissingSkills: nonNil(a.MissingSkills),
		Reasoning:     a.Reasoning,
		Feedback:      a.Feedback,
		CoverLetter:   a.CoverLetter,
		Status:        string(a.Status),
		SubmittedAt:   a.SubmittedAt,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

type scoreRequest struct {
	ResumeID  string `json:"resume_id" binding:"required"`
	PostingID string `json:"posting_id" binding:"required"`
}

// ScoreApplication runs the scoring stage and returns the new application.
func (h *Handler) ScoreApplication(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "resume_id and posting_id are required")
		return
	}

	application, err := h.stages.Score(c.Request.Context(), req.ResumeID, req.PostingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newApplicationResponse(application))
}

type coverLetterRequest struct {
	Tone string `json:"tone"`
}

// GenerateCoverLetter runs the cover letter stage. An empty body selects the
// professional tone.
func (h *Handler) GenerateCoverLetter(c *gin.Context) {
	var req coverLetterRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request body")
			return
		}
	}

	tone, err := pipeline.ParseTone(req.Tone)
	if err != nil {
		respondError(c, err)
		return
	}

	letter, err := h.stages.GenerateCoverLetter(c.Request.Context(), c.Param("id"), tone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application_id": c.Param("id"), "tone": tone, "cover_letter": letter})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus applies a recruiter decision.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "status is required")
		return
	}

	status := database.ApplicationStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	application, err := h.stages.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newApplicationResponse(application))
}

// GetApplication returns one application.
func (h *Handler) GetApplication(c *gin.Context) {
	application, err := h.records.FindApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newApplicationResponse(application))
}

// PipelineState reports where an application stands, from whichever of
// resume_id, posting_id and application_id the caller holds.
func (h *Handler) PipelineState(c *gin.Context) {
	progress, err := h.stages.State(c.Request.Context(), pipeline.Ref{
		ResumeID:      c.Query("resume_id"),
		PostingID:     c.Query("posting_id"),
		ApplicationID: c.Query("application_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
