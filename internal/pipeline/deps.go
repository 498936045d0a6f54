package pipeline

import (
	"context"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/notify"
	"github.com/spigell/applyflow/internal/storage"
)

// Store is the persistence the pipeline needs. Writes are atomic per record.
type Store interface {
	FindTenant(ctx context.Context, id string) (*database.Tenant, error)
	FindJobPosting(ctx context.Context, id string) (*database.JobPosting, error)
	CacheJobDescriptionText(ctx context.Context, id, text string) error
	FindCandidate(ctx context.Context, id string) (*database.Candidate, error)
	FindResume(ctx context.Context, id string) (*database.ResumeArtifact, error)
	InsertResume(ctx context.Context, resume *database.ResumeArtifact) error
	FindApplication(ctx context.Context, id string) (*database.Application, error)
	FindApplicationByResume(ctx context.Context, resumeID, postingID string) (*database.Application, error)
	InsertApplication(ctx context.Context, application *database.Application) error
	UpdateCoverLetter(ctx context.Context, id, letter string) error
	UpdateStatus(ctx context.Context, id string, status database.ApplicationStatus) error
	InsertAgentLog(ctx context.Context, entry *database.AgentLog) error
}

// CredentialResolver maps a job posting to the credential of its tenant.
type CredentialResolver interface {
	Resolve(ctx context.Context, postingID string) (ai.Credential, error)
}

// FileStore keeps uploaded source documents.
type FileStore interface {
	Store(ctx context.Context, prefix, filename, contentType string, data []byte) (*storage.Object, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Notifier publishes pipeline events.
type Notifier interface {
	Publish(ctx context.Context, evt notify.Event) error
}
