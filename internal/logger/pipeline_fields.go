package logger

import (
	"context"

	"go.uber.org/zap"
)

const (
	FieldStage         = "stage"
	FieldTenantID      = "tenant_id"
	FieldPostingID     = "posting_id"
	FieldResumeID      = "resume_id"
	FieldApplicationID = "application_id"
	FieldCorrelationID = "correlation_id"
)

// PipelineRef identifies the entities a stage invocation works on.
type PipelineRef struct {
	Stage         string
	TenantID      string
	PostingID     string
	ResumeID      string
	ApplicationID string
	CorrelationID string
}

// PipelineFields returns the non-empty identifiers of ref as zap fields.
func PipelineFields(ref PipelineRef) []zap.Field {
	return StringFields(
		StringField{Key: FieldStage, Value: ref.Stage},
		StringField{Key: FieldTenantID, Value: ref.TenantID},
		StringField{Key: FieldPostingID, Value: ref.PostingID},
		StringField{Key: FieldResumeID, Value: ref.ResumeID},
		StringField{Key: FieldApplicationID, Value: ref.ApplicationID},
		StringField{Key: FieldCorrelationID, Value: ref.CorrelationID},
	)
}

// WithPipelineFields attaches the stage identifiers to the logger.
func WithPipelineFields(logger *zap.Logger, ref PipelineRef) *zap.Logger {
	return WithFields(logger, PipelineFields(ref)...)
}

type correlationKey struct{}

// ContextWithCorrelationID returns ctx carrying the request correlation id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
