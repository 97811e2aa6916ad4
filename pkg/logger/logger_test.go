package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@lab.example.com", "a****@***.*******.com"},
		{"a@x.com", "a@*.com"},
		{"not-an-email", "[invalid-email]"},
		{"root@localhost", "r***@localhost"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizedEmail(tt.in), tt.in)
	}
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", RedactedAttr("code", "123456", "production").Value.String())
	assert.Equal(t, "123456", RedactedAttr("code", "123456", "development").Value.String())
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("email=a@x.com"))
	assert.True(t, SanitizeQueryString("Code=123456"))
	assert.False(t, SanitizeQueryString("page=2&limit=10"))
	assert.False(t, SanitizeQueryString(""))
}

func TestAuditLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.Log(context.Background(), AuditEvent{
		EventType:     EventLoginFailure,
		AccountID:     "acc-1",
		Email:         "alice@lab.com",
		IPAddress:     "203.0.113.10",
		FailureReason: "invalid_password",
	})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "audit", record["msg"])
	assert.Equal(t, EventLoginFailure, record["event_type"])
	assert.Equal(t, "a****@***.com", record["email"])
	assert.Equal(t, false, record["success"])
	assert.Equal(t, "invalid_password", record["failure_reason"])
}

func TestAuditLogger_LogAccountAction(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAccountAction(context.Background(), EventAccountUnlock, "acc-2", map[string]string{"actor": "cli"})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "acc-2", record["account_id"])
	assert.Equal(t, "cli", record["actor"])
}
