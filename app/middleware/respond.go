package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/zuricore/identity-service/app/dto"
)

// writeJSONError emits the standard error envelope from inside middleware,
// matching the shape handlers produce.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		StatusCode: status,
		ErrorCode:  code,
		Message:    msg,
	})
}
