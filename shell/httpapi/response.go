package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the body of every response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil && logger != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	writeJSON(w, status, Envelope{Success: true, Data: data}, logger)
}

func writeError(w http.ResponseWriter, err error, logger *slog.Logger) {
	kind := loans.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "error", err, "error_kind", string(kind))
	}

	writeJSON(w, status, Envelope{Error: shell.Describe(err), Code: string(kind)}, logger)
}

func writeBadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	writeJSON(w, http.StatusBadRequest, Envelope{Error: message, Code: string(loans.KindInvalidInput)}, logger)
}

// statusFor maps an error kind to the HTTP status of the response.
func statusFor(kind loans.Kind) int {
	switch kind {
	case loans.KindInvalidInput:
		return http.StatusBadRequest
	case loans.KindUserNotFound, loans.KindBookNotFound:
		return http.StatusNotFound
	case loans.KindBorrowLimitExceeded,
		loans.KindBookUnavailable,
		loans.KindNoActiveLoan,
		loans.KindBookHasLoans,
		loans.KindBorrowLimitBelowActive,
		loans.KindRaceLost:
		return http.StatusConflict
	case loans.KindContextDeadlineExceeded:
		return http.StatusGatewayTimeout
	case loans.KindContextCanceled, loans.KindTransactionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return errors.Join(errMalformedBody, err)
	}

	return nil
}

var errMalformedBody = errors.New("request body is not valid JSON for this endpoint")
