package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/logger"
	"github.com/spigell/applyflow/internal/store"

	"go.uber.org/zap"
)

var (
	// ErrNotConfigured means the tenant never stored an API key.
	ErrNotConfigured = errors.New("recruiter has not set up AI processing")
	// ErrInvalidSettings is returned by Configure for rejected input.
	ErrInvalidSettings = errors.New("invalid tenant settings")
)

type tenantStore interface {
	FindJobPosting(ctx context.Context, id string) (*database.JobPosting, error)
	FindTenant(ctx context.Context, id string) (*database.Tenant, error)
	SaveTenant(ctx context.Context, tenant *database.Tenant) error
	UpdateTenant(ctx context.Context, id string, patch store.TenantPatch) error
}

// Settings is the tenant-editable AI configuration. Blank fields keep the
// stored value.
type Settings struct {
	Name           string
	APIKey         string
	Model          string
	SchedulingLink string
}

// Resolver finds the credential authorizing calls for a job posting.
type Resolver struct {
	store        tenantStore
	defaultModel string
	supported    map[string]struct{}
	logger       *zap.Logger
}

// NewResolver returns a Resolver. Tenant models outside supported fall back to
// defaultModel.
func NewResolver(s tenantStore, defaultModel string, supported []string, log *zap.Logger) *Resolver {
	set := make(map[string]struct{}, len(supported))
	for _, model := range supported {
		if model = strings.TrimSpace(model); model != "" {
			set[model] = struct{}{}
		}
	}

	return &Resolver{
		store:        s,
		defaultModel: strings.TrimSpace(defaultModel),
		supported:    set,
		logger:       logger.WithFields(log, zap.String("component", "credentials")),
	}
}

// Resolve returns the credential of the tenant owning postingID.
func (r *Resolver) Resolve(ctx context.Context, postingID string) (ai.Credential, error) {
	posting, err := r.store.FindJobPosting(ctx, postingID)
	if err != nil {
		return ai.Credential{}, err
	}
	return r.ResolveTenant(ctx, posting.TenantID)
}

// ResolveTenant returns the credential stored for tenantID.
func (r *Resolver) ResolveTenant(ctx context.Context, tenantID string) (ai.Credential, error) {
	tenant, err := r.store.FindTenant(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return ai.Credential{}, fmt.Errorf("%w: tenant %s", ErrNotConfigured, tenantID)
	}
	if err != nil {
		return ai.Credential{}, err
	}

	cred := ai.Credential{
		TenantID: tenant.ID,
		APIKey:   strings.TrimSpace(tenant.APIKey),
		Model:    r.model(tenant.Model),
	}
	if !cred.Configured() {
		return ai.Credential{}, fmt.Errorf("%w: tenant %s", ErrNotConfigured, tenantID)
	}

	return cred, nil
}

func (r *Resolver) model(preferred string) string {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		return r.defaultModel
	}
	if _, ok := r.supported[preferred]; ok || len(r.supported) == 0 {
		return preferred
	}

	r.logger.Warn("tenant model is not supported, using default",
		zap.String("model", preferred),
		zap.String("default_model", r.defaultModel),
	)
	return r.defaultModel
}

// Configure stores tenant settings, creating the tenant on first use. A blank
// API key never clears an existing one.
func (r *Resolver) Configure(ctx context.Context, tenantID string, settings Settings) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidSettings)
	}

	apiKey := strings.TrimSpace(settings.APIKey)
	model := strings.TrimSpace(settings.Model)
	link := strings.TrimSpace(settings.SchedulingLink)

	if model != "" && len(r.supported) > 0 {
		if _, ok := r.supported[model]; !ok {
			return fmt.Errorf("%w: model %q is not supported", ErrInvalidSettings, model)
		}
	}
	if link != "" {
		if err := validateSchedulingLink(link); err != nil {
			return err
		}
	}

	_, err := r.store.FindTenant(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return r.store.SaveTenant(ctx, &database.Tenant{
			ID:             tenantID,
			Name:           strings.TrimSpace(settings.Name),
			APIKey:         apiKey,
			Model:          model,
			SchedulingLink: link,
		})
	}
	if err != nil {
		return err
	}

	var patch store.TenantPatch
	if apiKey != "" {
		patch.APIKey = &apiKey
	}
	if model != "" {
		patch.Model = &model
	}
	if link != "" {
		patch.SchedulingLink = &link
	}

	if err := r.store.UpdateTenant(ctx, tenantID, patch); err != nil {
		return err
	}

	r.logger.Info("tenant settings updated",
		zap.String(logger.FieldTenantID, tenantID),
		zap.Bool("api_key_changed", patch.APIKey != nil),
		zap.Bool("model_changed", patch.Model != nil),
	)
	return nil
}

func validateSchedulingLink(link string) error {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: scheduling link must be an https url", ErrInvalidSettings)
	}
	return nil
}
