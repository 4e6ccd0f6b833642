/*
errors.go - Domain error to HTTP response mapping

STATUS CODES:
  400  ValidationError, malformed body
  401  missing or unknown X-User-ID
  403  PermissionError, inactive account
  404  NotFoundError
  409  StateConflictError, ConflictError (schedule)
  422  BalanceError; the body carries the computed balance
  500  anything else (store failures); details are logged, not returned

BODY:
  {"error": "...", "code": "schedule_conflict", "field": "date", "details": {...}}
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// BalanceDetails accompanies an insufficient_balance error.
type BalanceDetails struct {
	OfficerID string `json:"officer_id"`
	Year      int    `json:"year"`
	Balance   int    `json:"balance"`
}

// ConflictDetails accompanies a schedule_conflict error.
type ConflictDetails struct {
	OfficerID string `json:"officer_id"`
	Date      string `json:"date"`
	Kind      string `json:"kind"`
	RecordID  string `json:"record_id"`
}

// StateDetails accompanies a state_conflict error.
type StateDetails struct {
	SubjectID string `json:"subject_id"`
	Current   string `json:"current"`
	Retryable bool   `json:"retryable"`
}

// toResponse classifies err. The most specific structured error wins.
func toResponse(err error) (int, ErrorResponse) {
	var (
		vErr *generic.ValidationError
		pErr *generic.PermissionError
		sErr *generic.StateConflictError
		bErr *generic.BalanceError
		cErr *generic.ConflictError
		nErr *generic.NotFoundError
	)

	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, ErrorResponse{Error: vErr.Error(), Code: "validation_failed", Field: vErr.Field}
	case errors.As(err, &pErr):
		return http.StatusForbidden, ErrorResponse{Error: pErr.Error(), Code: "permission_denied"}
	case errors.As(err, &nErr):
		return http.StatusNotFound, ErrorResponse{Error: nErr.Error(), Code: "not_found"}
	case errors.As(err, &bErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: bErr.Error(),
			Code:  "insufficient_balance",
			Details: BalanceDetails{
				OfficerID: bErr.OfficerID,
				Year:      bErr.Year,
				Balance:   bErr.Balance,
			},
		}
	case errors.As(err, &cErr):
		return http.StatusConflict, ErrorResponse{
			Error: cErr.Error(),
			Code:  "schedule_conflict",
			Details: ConflictDetails{
				OfficerID: cErr.OfficerID,
				Date:      cErr.Date.String(),
				Kind:      string(cErr.Kind),
				RecordID:  cErr.RecordID,
			},
		}
	case errors.As(err, &sErr):
		return http.StatusConflict, ErrorResponse{
			Error: sErr.Error(),
			Code:  "state_conflict",
			Details: StateDetails{
				SubjectID: sErr.SubjectID,
				Current:   sErr.Current,
				Retryable: generic.IsRetryable(err),
			},
		}
	case errors.Is(err, generic.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"}
	case errors.Is(err, generic.ErrValidation):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation_failed"}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"}
}

// writeError renders err. Server errors are logged with the request id.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := toResponse(err)
	if status >= http.StatusInternalServerError {
		h.log().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func writeStatus(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
