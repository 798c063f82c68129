package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/codegen-gateway/internal/handler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func devResponder() *handler.Responder {
	return handler.NewResponder(testLogger(), true)
}

// body is the decoded response envelope.
type body struct {
	Success bool            `json:"success"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Stack   string          `json:"stack"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), "body: %s", rec.Body.String())
	return b
}

// replaceTimestamp swaps the timestamp value for a fixed one so bodies can be
// compared with JSONEq.
func replaceTimestamp(s string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return s
	}
	if _, ok := m["timestamp"]; ok {
		m["timestamp"] = "ignored"
	}
	out, _ := json.Marshal(m)
	return string(out)
}
