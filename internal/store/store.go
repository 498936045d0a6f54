package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/applyflow/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// TenantPatch carries the tenant settings to change. Nil fields are left as is.
type TenantPatch struct {
	APIKey         *string
	Model          *string
	SchedulingLink *string
}

// Store persists pipeline entities. Every write is a single statement.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) FindTenant(ctx context.Context, id string) (*database.Tenant, error) {
	var tenant database.Tenant
	if err := s.first(ctx, &tenant, id, "tenant"); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// SaveTenant inserts the tenant or replaces all of its columns.
func (s *Store) SaveTenant(ctx context.Context, tenant *database.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Save(tenant).Error; err != nil {
		return fmt.Errorf("save tenant %s: %w", tenant.ID, err)
	}
	return nil
}

// UpdateTenant applies the non-nil fields of patch.
func (s *Store) UpdateTenant(ctx context.Context, id string, patch TenantPatch) error {
	updates := map[string]any{}
	if patch.APIKey != nil {
		updates["api_key"] = *patch.APIKey
	}
	if patch.Model != nil {
		updates["model"] = *patch.Model
	}
	if patch.SchedulingLink != nil {
		updates["scheduling_link"] = *patch.SchedulingLink
	}
	if len(updates) == 0 {
		_, err := s.FindTenant(ctx, id)
		return err
	}
	updates["updated_at"] = s.now()

	return s.update(ctx, &database.Tenant{}, id, "tenant", updates)
}

func (s *Store) FindJobPosting(ctx context.Context, id string) (*database.JobPosting, error) {
	var posting database.JobPosting
	if err := s.first(ctx, &posting, id, "job posting"); err != nil {
		return nil, err
	}
	return &posting, nil
}

func (s *Store) InsertJobPosting(ctx context.Context, posting *database.JobPosting) error {
	if posting.ID == "" {
		posting.ID = uuid.NewString()
	}
	if posting.CreatedAt.IsZero() {
		posting.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(posting).Error; err != nil {
		return fmt.Errorf("insert job posting: %w", err)
	}
	return nil
}

// CacheJobDescriptionText stores the transcription of a posting's document.
func (s *Store) CacheJobDescriptionText(ctx context.Context, id, text string) error {
	return s.update(ctx, &database.JobPosting{}, id, "job posting", map[string]any{"extracted_text": text})
}

func (s *Store) FindCandidate(ctx context.Context, id string) (*database.Candidate, error) {
	var candidate database.Candidate
	if err := s.first(ctx, &candidate, id, "candidate"); err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (s *Store) InsertCandidate(ctx context.Context, candidate *database.Candidate) error {
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	candidate.Email = strings.ToLower(strings.TrimSpace(candidate.Email))
	if err := s.db.WithContext(ctx).Create(candidate).Error; err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (s *Store) FindResume(ctx context.Context, id string) (*database.ResumeArtifact, error) {
	var resume database.ResumeArtifact
	if err := s.first(ctx, &resume, id, "resume"); err != nil {
		return nil, err
	}
	return &resume, nil
}

func (s *Store) InsertResume(ctx context.Context, resume *database.ResumeArtifact) error {
	if resume.ID == "" {
		resume.ID = uuid.NewString()
	}
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(resume).Error; err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

func (s *Store) FindApplication(ctx context.Context, id string) (*database.Application, error) {
	var application database.Application
	if err := s.first(ctx, &application, id, "application"); err != nil {
		return nil, err
	}
	return &application, nil
}

// ListJobPostings returns postings newest first. An empty tenantID lists the
// postings of every tenant.
func (s *Store) ListJobPostings(ctx context.Context, tenantID string) ([]database.JobPosting, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var postings []database.JobPosting
	if err := query.Find(&postings).Error; err != nil {
		return nil, fmt.Errorf("list job postings for tenant %q: %w", tenantID, err)
	}
	return postings, nil
}

// ListApplicationsByCandidate returns a candidate's applications, newest first.
func (s *Store) ListApplicationsByCandidate(ctx context.Context, candidateID string) ([]database.Application, error) {
	var applications []database.Application
	err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("submitted_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, fmt.Errorf("list applications for candidate %s: %w", candidateID, err)
	}
	return applications, nil
}

// ListApplications returns the applications of a posting, best match first.
func (s *Store) ListApplications(ctx context.Context, postingID string) ([]database.Application, error) {
	var applications []database.Application
	err := s.db.WithContext(ctx).
		Where("job_posting_id = ?", postingID).
		Order("match_score DESC, submitted_at ASC").
		Find(&applications).Error
	if err != nil {
		return nil, fmt.Errorf("list applications for %s: %w", postingID, err)
	}
	return applications, nil
}

// FindApplicationByResume returns the application scored for the resume and
// posting pair, if any.
func (s *Store) FindApplicationByResume(ctx context.Context, resumeID, postingID string) (*database.Application, error) {
	var application database.Application
	err := s.db.WithContext(ctx).
		Where("resume_id = ? AND job_posting_id = ?", resumeID, postingID).
		Order("submitted_at DESC").
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: application for resume %s", ErrNotFound, resumeID)
	}
	if err != nil {
		return nil, fmt.Errorf("find application for resume %s: %w", resumeID, err)
	}
	return &application, nil
}

func (s *Store) InsertApplication(ctx context.Context, application *database.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.SubmittedAt.IsZero() {
		application.SubmittedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(application).Error; err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// UpdateCoverLetter overwrites the cover letter and nothing else.
func (s *Store) UpdateCoverLetter(ctx context.Context, id, letter string) error {
	return s.update(ctx, &database.Application{}, id, "application", map[string]any{"cover_letter": letter})
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status database.ApplicationStatus) error {
	return s.update(ctx, &database.Application{}, id, "application", map[string]any{"status": status})
}

func (s *Store) InsertAgentLog(ctx context.Context, entry *database.AgentLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert agent log: %w", err)
	}
	return nil
}

func (s *Store) first(ctx context.Context, dest any, id, kind string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is empty", ErrNotFound, kind)
	}
	err := s.db.WithContext(ctx).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	if err != nil {
		return fmt.Errorf("find %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, model any, id, kind string, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update %s %s: %w", kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}
