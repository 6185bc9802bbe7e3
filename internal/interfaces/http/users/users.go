package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/common"
	"github.com/sngm3741/survey-haven/api/internal/shared"
	userapp "github.com/sngm3741/survey-haven/api/internal/user/application"
	"github.com/sngm3741/survey-haven/api/internal/user/domain"
)

// createHandler は email 単位で冪等にユーザーを登録する。既存なら insertedId:null を返す。
func (h *Handler) createHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := common.DecodeJSON(w, r, &payload); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		result, err := h.directory.Create(ctx, userFromPayload(payload))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		if !result.Created {
			common.WriteJSON(h.logger, w, http.StatusOK, existsResponse{Message: "user already exists"})
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, common.NewInsertResponse(shared.InsertResult{InsertedID: result.InsertedID}))
	}
}

func (h *Handler) listHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		users, err := h.directory.List(ctx, userapp.Filter{Role: r.URL.Query().Get("role")})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		items := make([]map[string]any, 0, len(users))
		for _, user := range users {
			items = append(items, userResponse(user))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, items)
	}
}

// roleCheckHandler は自分自身の email についてのみロール判定を返す。他人の email は 403。
func (h *Handler) roleCheckHandler(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(chi.URLParam(r, "email"))
		claims, ok := common.ClaimsFromContext(r.Context())
		if !ok || !strings.EqualFold(strings.TrimSpace(claims.Email), email) {
			common.WriteError(h.logger, w, shared.ErrForbidden)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		has, err := h.directory.HasRole(ctx, email, role)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]bool{string(role): has})
	}
}

func (h *Handler) promoteHandler(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		result, err := h.directory.Promote(ctx, chi.URLParam(r, "id"), role)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, common.NewUpdateResponse(result))
	}
}

func (h *Handler) deleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		result, err := h.directory.Delete(ctx, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, common.NewDeleteResponse(result))
	}
}
