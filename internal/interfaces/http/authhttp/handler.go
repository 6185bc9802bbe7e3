package authhttp

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/common"
	"github.com/sngm3741/survey-haven/api/internal/shared"
)

// TokenIssuer signs identity claims.
type TokenIssuer interface {
	Issue(identity map[string]any) (string, error)
}

// Handler serves token issuance.
type Handler struct {
	logger *log.Logger
	issuer TokenIssuer
}

func NewHandler(logger *log.Logger, issuer TokenIssuer) *Handler {
	return &Handler{logger: logger, issuer: issuer}
}

// Register mounts POST /jwt.
func (h *Handler) Register(r chi.Router) {
	r.Post("/jwt", h.tokenHandler())
}

type tokenResponse struct {
	Token string `json:"token"`
}

// tokenHandler はリクエストボディをそのままクレームとして署名したトークンを返す。
func (h *Handler) tokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var identity map[string]any
		if err := common.DecodeJSON(w, r, &identity); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if identity == nil {
			common.WriteError(h.logger, w, shared.ErrInvalidInput)
			return
		}

		token, err := h.issuer.Issue(identity)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, tokenResponse{Token: token})
	}
}
