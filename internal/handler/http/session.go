package http

import (
	"log/slog"
	"net/http"

	"github.com/nileways/storefront/internal/session"
	"github.com/nileways/storefront/pkg/httputil"
	"github.com/nileways/storefront/pkg/logger"
	"github.com/nileways/storefront/pkg/validator"
)

// SessionHandler serves the session endpoints. Authentication here is just
// token custody: the CMS issues the token at login and this service stores it
// per session. A session is authenticated when a token is present; the token
// is never decoded or verified locally.
type SessionHandler struct {
	sessions *session.Store
	stores   *StoreFactory
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Store, stores *StoreFactory, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, stores: stores, logger: logger}
}

type sessionStatus struct {
	SessionID     string `json:"session_id"`
	Authenticated bool   `json:"authenticated"`
}

// GetSession handles GET /api/v1/session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionStatus{
		SessionID:     sessionID,
		Authenticated: h.sessions.IsAuthenticated(r.Context(), sessionID),
	}})
}

type loginRequest struct {
	Token string `json:"token" validate:"required"`
}

// Login handles POST /api/v1/session/login. The client obtains a token from
// the CMS and hands it over here; the guest cart is then replayed onto the
// account cart and the merged server cart comes back in the response. A replay
// failure is reported through the notifications, not the status code, so the
// visitor still lands on a usable cart.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	sessionID := SessionID(ctx)

	if err := h.sessions.SetToken(ctx, sessionID, req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	store, collector := h.stores.New(sessionID)
	if err := store.Reconcile(ctx); err != nil {
		logger.WithContext(ctx, h.logger).WarnContext(ctx, "cart reconciliation incomplete",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartPayload(store, collector)})
}

// Logout handles POST /api/v1/session/logout. Only the token goes; the cart is
// left exactly as it was, including any mirror of the account cart.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := SessionID(ctx)

	if err := h.sessions.ClearToken(ctx, sessionID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessionStatus{
		SessionID:     sessionID,
		Authenticated: false,
	}})
}
