package embeddings

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prismhq/prism/internal/platform/httpx"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body, keyed with
// the shared webhook secret.
const SignatureHeader = "X-Prism-Signature"

const maxWebhookBody = 1 << 20

// WebhookHandler receives completion callbacks from the batch service. It is
// mounted outside the authenticated router; the HMAC signature is the only
// gate.
type WebhookHandler struct {
	secret  []byte
	service *Service
	logger  *slog.Logger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(secret string, service *Service, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{secret: []byte(secret), service: service, logger: logger}
}

// MountRoutes attaches the callback route.
func (h *WebhookHandler) MountRoutes(r chi.Router) {
	r.Post("/embeddings", h.callback)
}

type callbackPayload struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	VectorRef string `json:"vector_ref"`
	Error     string `json:"error"`
}

func (h *WebhookHandler) callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable body")
		return
	}
	if !h.verify(body, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("webhook signature mismatch", slog.String("remote", r.RemoteAddr))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	id, err := uuid.Parse(payload.TaskID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid task_id")
		return
	}

	switch payload.Status {
	case "completed":
		err = h.service.Complete(r.Context(), id, payload.VectorRef)
	case "failed":
		err = h.service.Fail(r.Context(), id, payload.Error)
	default:
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown status")
		return
	}
	if err != nil {
		h.logger.Error("webhook update", slog.String("task_id", payload.TaskID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WebhookHandler) verify(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
