package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/credentials"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/pipeline"
	"github.com/spigell/applyflow/internal/storage"
)

const (
	defaultMaxUploadBytes  = 10 << 20
	defaultDocumentLinkTTL = 15 * time.Minute
)

// Stages are the pipeline operations exposed over HTTP.
type Stages interface {
	Extract(ctx context.Context, candidateID, postingID string, file pipeline.FileBlob) (*database.ResumeArtifact, error)
	Score(ctx context.Context, resumeID, postingID string) (*database.Application, error)
	GenerateCoverLetter(ctx context.Context, applicationID string, tone pipeline.Tone) (string, error)
	State(ctx context.Context, ref pipeline.Ref) (*pipeline.Progress, error)
	UpdateStatus(ctx context.Context, applicationID string, status database.ApplicationStatus) (*database.Application, error)
}

// Records are the read and create operations outside the pipeline stages.
type Records interface {
	FindJobPosting(ctx context.Context, id string) (*database.JobPosting, error)
	InsertJobPosting(ctx context.Context, posting *database.JobPosting) error
	ListJobPostings(ctx context.Context, tenantID string) ([]database.JobPosting, error)
	FindCandidate(ctx context.Context, id string) (*database.Candidate, error)
	InsertCandidate(ctx context.Context, candidate *database.Candidate) error
	FindApplication(ctx context.Context, id string) (*database.Application, error)
	ListApplications(ctx context.Context, postingID string) ([]database.Application, error)
	ListApplicationsByCandidate(ctx context.Context, candidateID string) ([]database.Application, error)
}

// TenantSettings stores recruiter AI settings.
type TenantSettings interface {
	Configure(ctx context.Context, tenantID string, settings credentials.Settings) error
}

// Documents stores uploaded job description files and signs download links.
type Documents interface {
	Store(ctx context.Context, prefix, filename, contentType string, data []byte) (*storage.Object, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Handler serves the HTTP API.
type Handler struct {
	stages          Stages
	records         Records
	tenants         TenantSettings
	documents       Documents
	logger          *zap.Logger
	maxUploadBytes  int64
	documentLinkTTL time.Duration
}

// HandlerConfig wires a Handler. Documents is optional; without it postings
// accept text descriptions only.
type HandlerConfig struct {
	Stages          Stages
	Records         Records
	Tenants         TenantSettings
	Documents       Documents
	Logger          *zap.Logger
	MaxUploadBytes  int64
	// DocumentLinkTTL bounds presigned document links. Defaults to 15 minutes.
	DocumentLinkTTL time.Duration
}

func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	linkTTL := cfg.DocumentLinkTTL
	if linkTTL <= 0 {
		linkTTL = defaultDocumentLinkTTL
	}

	return &Handler{
		stages:          cfg.Stages,
		records:         cfg.Records,
		tenants:         cfg.Tenants,
		documents:       cfg.Documents,
		logger:          log,
		maxUploadBytes:  maxUpload,
		documentLinkTTL: linkTTL,
	}
}
