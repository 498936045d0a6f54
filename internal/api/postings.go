package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/api/middleware"
	"github.com/spigell/applyflow/internal/database"
)

const (
	postingPrefix       = "postings"
	postingDocumentType = "application/pdf"
)

type postingResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
	PublicURL   string `json:"public_url"`
}

// postingResponse renders p with a presigned document link when file storage
// is configured, falling back to the stored URL.
func (h *Handler) postingResponse(c *gin.Context, p *database.JobPosting) postingResponse {
	resp := postingResponse{
		ID:          p.ID,
		TenantID:    p.TenantID,
		Title:       p.Title,
		Description: p.DescriptionText,
		DocumentURL: p.DocumentURL,
		PublicURL:   p.PublicURL,
	}
	if resp.Description == "" {
		resp.Description = p.ExtractedText
	}

	if h.documents != nil && p.DocumentKey != "" {
		link, err := h.documents.PresignedURL(c.Request.Context(), p.DocumentKey, h.documentLinkTTL)
		if err != nil {
			middleware.LoggerFromContext(c).Warn("signing job description link",
				zap.String("posting_id", p.ID), zap.Error(err))
		} else {
			resp.DocumentURL = link
		}
	}
	return resp
}

func (h *Handler) postingList(c *gin.Context, postings []database.JobPosting) []postingResponse {
	items := make([]postingResponse, 0, len(postings))
	for i := range postings {
		items = append(items, h.postingResponse(c, &postings[i]))
	}
	return items
}

// CreatePosting stores a job posting from a multipart form with tenant_id,
// title and either a description or a PDF document.
func (h *Handler) CreatePosting(c *gin.Context) {
	tenantID := strings.TrimSpace(c.PostForm("tenant_id"))
	title := strings.TrimSpace(c.PostForm("title"))
	description := strings.TrimSpace(c.PostForm("description"))
	if tenantID == "" || title == "" {
		BadRequest(c, "tenant_id and title are required")
		return
	}

	posting := &database.JobPosting{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Title:           title,
		DescriptionText: description,
	}
	posting.PublicURL = "/jd/" + posting.ID

	header, err := c.FormFile("document")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		if description == "" {
			BadRequest(c, "description or document is required")
			return
		}
	case err != nil:
		BadRequest(c, "invalid multipart form")
		return
	default:
		if h.documents == nil {
			BadRequest(c, "document uploads are not enabled")
			return
		}
		data, contentType, err := readUpload(header, h.maxUploadBytes)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		if contentType != postingDocumentType {
			BadRequest(c, fmt.Sprintf("document must be %s", postingDocumentType))
			return
		}

		obj, err := h.documents.Store(c.Request.Context(), postingPrefix+"/"+posting.ID, header.Filename, contentType, data)
		if err != nil {
			middleware.LoggerFromContext(c).Error("storing job description", zap.Error(err))
			Internal(c, "failed to store document")
			return
		}
		posting.DocumentKey = obj.Key
		posting.DocumentURL = obj.URL
		posting.DocumentMIMEType = contentType
	}

	if err := h.records.InsertJobPosting(c.Request.Context(), posting); err != nil {
		middleware.LoggerFromContext(c).Error("inserting job posting", zap.Error(err))
		Internal(c, "failed to create posting")
		return
	}

	c.JSON(http.StatusCreated, h.postingResponse(c, posting))
}

// PublicPosting serves the shareable job description page data.
func (h *Handler) PublicPosting(c *gin.Context) {
	posting, err := h.records.FindJobPosting(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.postingResponse(c, posting))
}

// JobBoard lists every open posting, newest first.
func (h *Handler) JobBoard(c *gin.Context) {
	postings, err := h.records.ListJobPostings(c.Request.Context(), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.postingList(c, postings)})
}

// ListTenantPostings returns the postings a recruiter created, newest first.
func (h *Handler) ListTenantPostings(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("id"))
	postings, err := h.records.ListJobPostings(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.postingList(c, postings)})
}

// ListPostingApplications returns the applications of a posting, best score first.
func (h *Handler) ListPostingApplications(c *gin.Context) {
	postingID := c.Param("id")
	if _, err := h.records.FindJobPosting(c.Request.Context(), postingID); err != nil {
		respondError(c, err)
		return
	}

	applications, err := h.records.ListApplications(c.Request.Context(), postingID)
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
