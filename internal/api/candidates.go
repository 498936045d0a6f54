package api

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/api/middleware"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/pipeline"
)

type createCandidateRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// CreateCandidate registers an applicant.
func (h *Handler) CreateCandidate(c *gin.Context) {
	var req createCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "name and email are required")
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		BadRequest(c, "invalid email")
		return
	}

	candidate := &database.Candidate{Name: strings.TrimSpace(req.Name), Email: req.Email}
	if err := h.records.InsertCandidate(c.Request.Context(), candidate); err != nil {
		middleware.LoggerFromContext(c).Warn("inserting candidate", zap.Error(err))
		Conflict(c, "candidate could not be created")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": candidate.ID, "name": candidate.Name, "email": candidate.Email})
}

type resumeResponse struct {
	ID          string   `json:"id"`
	CandidateID string   `json:"candidate_id"`
	FileName    string   `json:"file_name"`
	FileURL     string   `json:"file_url,omitempty"`
	Summary     string   `json:"summary"`
	Skills      []string `json:"skills"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
}

// UploadResume runs the extraction stage on a multipart résumé upload with
// candidate_id and posting_id fields.
func (h *Handler) UploadResume(c *gin.Context) {
	candidateID := strings.TrimSpace(c.PostForm("candidate_id"))
	postingID := strings.TrimSpace(c.PostForm("posting_id"))
	if candidateID == "" || postingID == "" {
		BadRequest(c, "candidate_id and posting_id are required")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	data, contentType, err := readUpload(header, h.maxUploadBytes)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	resume, err := h.stages.Extract(c.Request.Context(), candidateID, postingID, pipeline.FileBlob{
		Name:     header.Filename,
		MIMEType: contentType,
		Data:     data,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resumeResponse{
		ID:          resume.ID,
		CandidateID: resume.CandidateID,
		FileName:    resume.FileName,
		FileURL:     resume.FileURL,
		Summary:     resume.Summary,
		Skills:      resume.Skills,
		Strengths:   resume.Strengths,
		Weaknesses:  resume.Weaknesses,
	})
}

// ListCandidateApplications returns a candidate's own applications, newest first.
func (h *Handler) ListCandidateApplications(c *gin.Context) {
	candidateID := c.Param("id")
	if _, err := h.records.FindCandidate(c.Request.Context(), candidateID); err != nil {
		respondError(c, err)
		return
	}

	applications, err := h.records.ListApplicationsByCandidate(c.Request.Context(), candidateID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]applicationResponse, 0, len(applications))
	for i := range applications {
		items = append(items, newApplicationResponse(&applications[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
