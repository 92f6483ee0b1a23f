package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// The audit log is a debug-mode trail of catalog mutations and sandbox
// failures: one JSON line per event, each carrying a Mangle fact string
// so a session can be loaded into a factstore and queried afterwards
// ("which cards failed to load", "what was deleted before the crash").
// It is separate from the category logs, which are free-form text.

// AuditEvent is one audit line.
type AuditEvent struct {
	Timestamp string `json:"ts"`
	Event     string `json:"event"`
	CardID    string `json:"card_id,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Fact      string `json:"fact"`
}

// auditLog serializes writers. Outside debug mode it stays disabled and
// every record is a no-op, so the render path never pays for it.
type auditLog struct {
	mu      sync.Mutex
	file    *os.File
	enc     *json.Encoder
	enabled bool
}

var (
	auditOnce sync.Once
	audit     *auditLog
)

// InitAudit opens the audit file next to the category logs. Call after
// Initialize (and EnableDebug, when the verbose flag is set); in
// non-debug mode the audit log is created disabled.
func InitAudit() error {
	var initErr error
	auditOnce.Do(func() {
		audit = &auditLog{}
		if !IsDebugMode() {
			return
		}
		if logsDir == "" {
			initErr = fmt.Errorf("file logging is not initialized")
			return
		}
		date := time.Now().Format("2006-01-02")
		path := filepath.Join(logsDir, date+"_audit.log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			initErr = fmt.Errorf("failed to open audit log: %w", err)
			return
		}
		audit.file = file
		audit.enc = json.NewEncoder(file)
		audit.enabled = true
	})
	return initErr
}

// CloseAudit closes the audit file. Events recorded after close are
// dropped.
func CloseAudit() {
	if audit == nil {
		return
	}
	audit.mu.Lock()
	defer audit.mu.Unlock()
	if audit.file != nil {
		_ = audit.file.Close()
		audit.file = nil
	}
	audit.enc = nil
	audit.enabled = false
}

func (a *auditLog) record(ev AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled || a.enc == nil {
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := a.enc.Encode(ev); err != nil {
		fmt.Fprintf(os.Stderr, "audit write failed: %v\n", err)
	}
}

func auditRecord(ev AuditEvent) {
	if audit == nil {
		return
	}
	audit.record(ev)
}

// AuditCardSaved records a definition passing the full save pipeline.
func AuditCardSaved(cardID, tier string) {
	auditRecord(AuditEvent{
		Event:  "card_saved",
		CardID: cardID,
		Tier:   tier,
		Fact:   fmt.Sprintf("card_saved(\"%s\", /%s).", escapeString(cardID), tier),
	})
}

// AuditCardDeleted records a definition leaving storage and registry.
func AuditCardDeleted(cardID string) {
	auditRecord(AuditEvent{
		Event:  "card_deleted",
		CardID: cardID,
		Fact:   fmt.Sprintf("card_deleted(\"%s\").", escapeString(cardID)),
	})
}

// AuditCardLoadFailed records a definition entering load-error state
// during a registry rebuild.
func AuditCardLoadFailed(cardID string, reason error) {
	detail := clipDetail(reason)
	auditRecord(AuditEvent{
		Event:  "card_load_failed",
		CardID: cardID,
		Detail: detail,
		Fact: fmt.Sprintf("card_load_failed(\"%s\", \"%s\").",
			escapeString(cardID), escapeString(detail)),
	})
}

// AuditCompileRejected records a save aborted by the source validator.
func AuditCompileRejected(cardID string, findings int) {
	auditRecord(AuditEvent{
		Event:  "compile_rejected",
		CardID: cardID,
		Fact:   fmt.Sprintf("compile_rejected(\"%s\", %d).", escapeString(cardID), findings),
	})
}

// AuditRenderFailed records a panic caught at the per-card render
// boundary.
func AuditRenderFailed(cardID string, reason error) {
	detail := clipDetail(reason)
	auditRecord(AuditEvent{
		Event:  "card_render_failed",
		CardID: cardID,
		Detail: detail,
		Fact: fmt.Sprintf("card_render_failed(\"%s\", \"%s\").",
			escapeString(cardID), escapeString(detail)),
	})
}

// clipDetail bounds stored error text; compile errors can quote whole
// source lines.
func clipDetail(err error) string {
	const max = 200
	if err == nil {
		return ""
	}
	s := err.Error()
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// escapeString escapes a value for embedding in a double-quoted Mangle
// string literal. The fast path returns the input unchanged when no
// escaping is needed.
func escapeString(s string) string {
	if strings.IndexAny(s, "\"\\\n\t\r") < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
