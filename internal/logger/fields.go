package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by every component that logs.
const (
	FieldProvider     = "ai_provider"
	FieldModel        = "ai_model"
	FieldRunID        = "run_id"
	FieldOrganization = "org_id"
)

// Pairs turns alternating keys and values into string fields. Pairs with a
// blank key or value are skipped, as is a trailing key without a value.
func Pairs(kv ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, value := strings.TrimSpace(kv[i]), strings.TrimSpace(kv[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// With attaches fields to l. A nil logger becomes a no-op one.
func With(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// AIFields describe the phrasing collaborator.
func AIFields(provider, model string) []zap.Field {
	return Pairs(FieldProvider, provider, FieldModel, model)
}

func WithAIFields(l *zap.Logger, provider, model string) *zap.Logger {
	return With(l, AIFields(provider, model)...)
}

// RunFields tie log entries to one match run.
func RunFields(runID, orgID string) []zap.Field {
	return Pairs(FieldRunID, runID, FieldOrganization, orgID)
}

func WithRunFields(l *zap.Logger, runID, orgID string) *zap.Logger {
	return With(l, RunFields(runID, orgID)...)
}
