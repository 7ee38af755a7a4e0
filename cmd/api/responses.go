package main

import (
	"encoding/json"
	"net/http"

	"github.com/zuricore/identity-service/app/dto"
	"github.com/zuricore/identity-service/app/errors"
	"github.com/zuricore/identity-service/app/logger"
)

// writeSuccess emits the success envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.SuccessResponse{
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// writeError is the single translation point from AppError to the wire. The
// wrapped cause is logged but never serialized.
func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	if appErr.Status >= http.StatusInternalServerError {
		logger.Logger.Error().Err(appErr.Err).Str("code", string(appErr.Code)).Msg(appErr.Message)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		StatusCode: appErr.Status,
		ErrorCode:  string(appErr.Code),
		Message:    appErr.Message,
	})
}

// decodeJSON parses the request body into dst.
func decodeJSON(r *http.Request, dst any) *errors.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewInvalidInput("invalid request body")
	}
	return nil
}
