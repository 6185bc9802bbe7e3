package common

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/sngm3741/survey-haven/api/internal/shared"
)

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *log.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

// WriteMessage writes the {"message": ...} body used by every error response.
func WriteMessage(logger *log.Logger, w http.ResponseWriter, status int, message string) {
	WriteJSON(logger, w, status, map[string]string{"message": message})
}

// WriteError はエラー種別を HTTP ステータスへ変換して書き込む。想定外のエラーは詳細を返さずログにだけ残す。
func WriteError(logger *log.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		WriteMessage(logger, w, http.StatusUnauthorized, shared.ErrUnauthorized.Error())
	case errors.Is(err, shared.ErrForbidden):
		WriteMessage(logger, w, http.StatusForbidden, shared.ErrForbidden.Error())
	case errors.Is(err, shared.ErrNotFound):
		WriteMessage(logger, w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrInvalidID), errors.Is(err, shared.ErrInvalidInput):
		WriteMessage(logger, w, http.StatusBadRequest, err.Error())
	default:
		if logger != nil {
			logger.Printf("request failed: %v", err)
		}
		WriteMessage(logger, w, http.StatusInternalServerError, "internal server error")
	}
}

// InsertResponse mirrors the store's insert acknowledgement.
type InsertResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResponse mirrors the store's update acknowledgement.
type UpdateResponse struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedCount int64   `json:"upsertedCount"`
	UpsertedID    *string `json:"upsertedId"`
}

// DeleteResponse mirrors the store's delete acknowledgement.
type DeleteResponse struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

func NewInsertResponse(result shared.InsertResult) InsertResponse {
	return InsertResponse{Acknowledged: true, InsertedID: result.InsertedID}
}

func NewUpdateResponse(result shared.UpdateResult) UpdateResponse {
	resp := UpdateResponse{
		Acknowledged:  true,
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
		UpsertedCount: result.UpsertedCount,
	}
	if result.UpsertedID != "" {
		id := result.UpsertedID
		resp.UpsertedID = &id
	}
	return resp
}

func NewDeleteResponse(result shared.DeleteResult) DeleteResponse {
	return DeleteResponse{Acknowledged: true, DeletedCount: result.DeletedCount}
}
