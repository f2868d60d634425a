package audit

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is a single audit record.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`
	Target    string    `json:"target,omitempty"`
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var auditLogger = log.Output(os.Stdout).With().Logger()

// Log records an audit event on stdout as structured JSON.
func Log(service, action, user, target, details string, success bool, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Service:   service,
		Action:    action,
		User:      user,
		Target:    target,
		Details:   details,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	entry, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		auditLogger.Error().
			Str("service", service).
			Str("action", action).
			Str("user", user).
			Str("target", target).
			Bool("success", success).
			Err(err).
			Msg("Audit log (fallback)")
		return
	}
	auditLogger.Log().RawJSON("audit_event", entry).Msg("")
}
