package embeddings

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "wh-test-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookServer(t *testing.T) (*httptest.Server, *mockRepository, *Service) {
	t.Helper()
	repo := newMockRepository()
	svc := newTestService(repo, &fakeRelayer{}, &fakeQueue{})
	handler := NewWebhookHandler(webhookSecret, svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/webhooks", handler.MountRoutes)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, repo, svc
}

func postWebhook(t *testing.T, server *httptest.Server, body []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/webhooks/embeddings", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestWebhookCompletesTask(t *testing.T) {
	server, repo, svc := newWebhookServer(t)
	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	body := []byte(`{"task_id":"` + task.ID.String() + `","status":"completed","vector_ref":"vec://9"}`)
	resp := postWebhook(t, server, body, sign(body))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, "vec://9", stored.VectorRef)
}

func TestWebhookRecordsFailure(t *testing.T) {
	server, repo, svc := newWebhookServer(t)
	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	body := []byte(`{"task_id":"` + task.ID.String() + `","status":"failed","error":"input too long"}`)
	resp := postWebhook(t, server, body, sign(body))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, "input too long", stored.FailReason)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	server, repo, svc := newWebhookServer(t)
	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	body := []byte(`{"task_id":"` + task.ID.String() + `","status":"completed","vector_ref":"vec://9"}`)

	resp := postWebhook(t, server, body, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postWebhook(t, server, body, hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postWebhook(t, server, body, "not-hex")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	stored, err := repo.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestWebhookRejectsUnknownStatus(t *testing.T) {
	server, _, svc := newWebhookServer(t)
	task, err := svc.Create(context.Background(), "hello")
	require.NoError(t, err)

	body := []byte(`{"task_id":"` + task.ID.String() + `","status":"sideways"}`)
	resp := postWebhook(t, server, body, sign(body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookUnknownTaskIsNotFound(t *testing.T) {
	server, _, _ := newWebhookServer(t)

	body := []byte(`{"task_id":"` + uuid.NewString() + `","status":"completed","vector_ref":"vec://9"}`)
	resp := postWebhook(t, server, body, sign(body))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
