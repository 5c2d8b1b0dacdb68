package api

import (
	"net/http"

	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr := errors.From(err)

	if appErr.Status >= 500 {
		log.Error("server error: %v", err)
	} else {
		log.Warn("client error: %v", err)
	}

	writeJSON(w, r, appErr.Status, errorBody{Error: errorDetail{Code: appErr.Code, Message: appErr.Message}})
}
