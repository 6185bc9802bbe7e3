package surveys

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/common"
)

func (h *Handler) createHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, err := decodeSurvey(w, r)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		result, err := h.store.Create(ctx, survey)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, common.NewInsertResponse(result))
	}
}

// listHandler は全件を返す。sort=top の場合は投票数ランキングの上位を返す。
func (h *Handler) listHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		query := r.URL.Query()
		if strings.EqualFold(strings.TrimSpace(query.Get("sort")), "top") {
			limit, _ := common.ParsePositiveInt(query.Get("limit"), 0)
			surveys, err := h.store.ListTop(ctx, limit)
			if err != nil {
				common.WriteError(h.logger, w, err)
				return
			}
			common.WriteJSON(h.logger, w, http.StatusOK, surveyListResponse(surveys))
			return
		}

		surveys, err := h.store.List(ctx)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, surveyListResponse(surveys))
	}
}

func (h *Handler) detailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		survey, err := h.store.Get(ctx, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, surveyResponse(*survey))
	}
}

// updateHandler は固定フィールド群を置き換える。対象が無ければその ID で作成する。
func (h *Handler) updateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, err := decodeSurvey(w, r)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		result, err := h.store.Update(ctx, chi.URLParam(r, "id"), survey)
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

		result, err := h.store.Delete(ctx, chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, common.NewDeleteResponse(result))
	}
}

func (h *Handler) voteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voteRequest
		if err := common.DecodeJSON(w, r, &req); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		survey, err := h.store.Vote(ctx, chi.URLParam(r, "id"), req.Vote)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, voteResponse{Success: true, UpdatedSurvey: surveyResponse(*survey)})
	}
}

// reportHandler は通報を受け付けるだけで、何も保存しない。
func (h *Handler) reportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Report(r.Context(), chi.URLParam(r, "id")); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, successResponse{Success: true})
	}
}

func (h *Handler) commentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commentRequest
		if err := common.DecodeJSON(w, r, &req); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		comment, err := h.store.AddComment(ctx, chi.URLParam(r, "id"), req.Comment)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, commentResponse{Success: true, Comment: comment})
	}
}
