package pipeline

import (
	"context"
	"fmt"

	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/logger"
	"github.com/spigell/applyflow/internal/notify"

	"go.uber.org/zap"
)

// UpdateStatus applies a recruiter decision to an application. Moving to
// interview-scheduled publishes an invitation carrying the tenant's
// scheduling link.
func (p *Pipeline) UpdateStatus(ctx context.Context, applicationID string, status database.ApplicationStatus) (*database.Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	application, err := p.store.FindApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if application.Status == status {
		return application, nil
	}

	if err := p.store.UpdateStatus(ctx, application.ID, status); err != nil {
		return nil, err
	}
	previous := application.Status
	application.Status = status

	log := logger.WithPipelineFields(p.logger, logger.PipelineRef{
		CorrelationID: logger.CorrelationID(ctx),
		PostingID:     application.JobPostingID,
		ApplicationID: application.ID,
	})
	log.Info("application status changed",
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)

	evt := notify.Event{
		Type:          notify.EventStatusChanged,
		ApplicationID: application.ID,
		PostingID:     application.JobPostingID,
		CandidateID:   application.CandidateID,
		Status:        string(status),
		MatchScore:    application.MatchScore,
	}

	if posting, err := p.store.FindJobPosting(ctx, application.JobPostingID); err == nil {
		evt.TenantID = posting.TenantID
		evt.JobTitle = posting.Title
	}

	if status == database.StatusInterviewScheduled {
		evt.Type = notify.EventInterviewScheduled
		if evt.TenantID != "" {
			if tenant, err := p.store.FindTenant(ctx, evt.TenantID); err == nil {
				evt.SchedulingLink = tenant.SchedulingLink
			}
		}
		if evt.SchedulingLink == "" {
			log.Warn("tenant has no scheduling link, invitation sent without it")
		}
	}

	p.publish(ctx, log, evt)

	return application, nil
}
