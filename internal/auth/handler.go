// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/storefront-api/internal/core"
	"github.com/carterperez-dev/storefront-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts /auth. limiter guards the credential endpoints and
// may be nil.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Put("/password", h.ChangePassword)
			r.Get("/sessions", h.Sessions)
			r.Delete("/sessions/{sessionID}", h.RevokeSession)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), req, clientInfo(r))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.Created(w, "user registered successfully", tokenPayload(result))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req, clientInfo(r))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "login successful", tokenPayload(result))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken, clientInfo(r))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, core.Payload{
		"token":        result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, core.Payload{"user": user})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		core.Unauthorized(w, "")
		return
	}

	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.service.Logout(r.Context(), identity, req.RefreshToken); err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "logged out", nil)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		core.Unauthorized(w, "")
		return
	}

	if err := h.service.LogoutAll(r.Context(), identity); err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "logged out of all sessions", nil)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !core.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), middleware.GetUserID(r.Context()), req); err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "password updated, please log in again", nil)
}

func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	families, err := h.service.Sessions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}

	core.OK(w, core.Payload{"sessions": families})
}

func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		core.BadRequest(w, "session id required")
		return
	}

	if err := h.service.RevokeSession(r.Context(), middleware.GetUserID(r.Context()), sessionID); err != nil {
		h.fail(w, err)
		return
	}

	core.OKMessage(w, "session revoked", nil)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	appErr := authError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		core.InternalServerError(w, err)
		return
	}
	core.JSONError(w, appErr)
}

func tokenPayload(result *AuthResult) core.Payload {
	return core.Payload{
		"token":        result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
		"user":         result.User,
	}
}

func clientInfo(r *http.Request) ClientInfo {
	ua := r.UserAgent()
	if len(ua) > 256 {
		ua = ua[:256]
	}
	return ClientInfo{UserAgent: ua, IPAddress: extractIPAddress(r)}
}

func extractIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
