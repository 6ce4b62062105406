package logging

// Audit logs are structured JSON lines recording every mutation of a task
// file and every edit-session transition, so a change can be traced back to
// the session that made it.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names one kind of audited operation.
type AuditEventType string

const (
	// Store mutations
	AuditTaskSave      AuditEventType = "task_save"
	AuditTaskDelete    AuditEventType = "task_delete"
	AuditTaskDuplicate AuditEventType = "task_duplicate"
	AuditTaskMerge     AuditEventType = "task_merge"
	AuditTaskCreate    AuditEventType = "task_create"

	// Session transitions
	AuditSessionOpen   AuditEventType = "session_open"
	AuditSessionCancel AuditEventType = "session_cancel"
	AuditSessionClose  AuditEventType = "session_close"

	// External changes seen by the watcher
	AuditExternalChange AuditEventType = "external_change"
)

// AuditEvent is one audit log line.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"`
	EventType  AuditEventType         `json:"event"`
	SessionID  string                 `json:"session,omitempty"`
	Target     string                 `json:"target"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger stamps events with a session ID.
type AuditLogger struct {
	sessionID string
}

// InitAudit opens the audit log next to the category logs.
// It is a no-op unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	configMu.RLock()
	dir := logsDir
	configMu.RUnlock()

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns an audit logger without a session.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithSession returns an audit logger scoped to a session.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(append(data, '\n'))
}

// Operation records the outcome of a store mutation.
func (a *AuditLogger) Operation(typ AuditEventType, target string, start time.Time, err error) {
	ev := AuditEvent{
		EventType:  typ,
		Target:     target,
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}

// Transition records a session state change.
func (a *AuditLogger) Transition(typ AuditEventType, target, msg string) {
	a.Log(AuditEvent{EventType: typ, Target: target, Success: true, Message: msg})
}
