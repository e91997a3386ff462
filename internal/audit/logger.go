package audit

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/pkg/reqctx"
)

// Logger provides structured audit logging for registration events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// warnActions are logged at warn level; everything else is info.
var warnActions = map[string]bool{
	"registration_rejected": true,
	"registration_conflict": true,
}

// Record logs one audit event. Email values are masked.
// Its signature matches registration.Service.WithAudit.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	if warnActions[action] {
		ev = l.log.Warn()
	}
	ev = ev.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}

	if id := reqctx.RequestID(ctx); id != "" {
		ev = ev.Str("request_id", id)
	}
	if ip := reqctx.ClientIP(ctx); ip != "" {
		ev = ev.Str("ip", ip)
	}
	ev.Msg(strings.ReplaceAll(action, "_", " "))
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	// Show first 2 chars and domain
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
