package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
)

// StringField is a string-valued log field that may be empty.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the pairs into zap fields, trimming both sides and
// dropping pairs with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to log. A nil log becomes a no-op logger.
func WithFields(log *zap.Logger, fields ...zap.Field) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// AIFields describes a generative call. Empty values are omitted, so a logger
// that already carries the provider can add only the model.
func AIFields(provider, model, tenantID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
		StringField{Key: FieldTenantID, Value: tenantID},
	)
}

// WithAIFields attaches AIFields to log.
func WithAIFields(log *zap.Logger, provider, model, tenantID string) *zap.Logger {
	return WithFields(log, AIFields(provider, model, tenantID)...)
}
