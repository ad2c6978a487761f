package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lent0n/jira-github-integration/internal/domain"

	"github.com/rs/zerolog"
)

const (
	msgInternal    = "Internal server error"
	msgUnreachable = "Could not reach GitHub. Please check the GitHub Enterprise URL and network connectivity."
)

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Errors []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps the domain error taxonomy to a status and a message safe to show the caller
func writeDomainError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var (
		validationErrs domain.ValidationErrors
		validationErr  *domain.ValidationError
		authErr        *domain.AuthError
		configErr      *domain.ConfigInvalidError
		opErr          *domain.GitHubOperationError
		transportErr   *domain.TransportError
		hostErr        *domain.HostAPIError
	)

	switch {
	case errors.As(err, &validationErrs):
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: validationErrs.Messages()})
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &authErr):
		status := http.StatusUnauthorized
		if authErr.Forbidden {
			status = http.StatusForbidden
		}
		writeError(w, status, authErr.Message)
	case errors.As(err, &configErr):
		writeError(w, http.StatusBadRequest, configErr.Error())
	case errors.As(err, &opErr):
		if errors.As(err, &transportErr) {
			logger.Error().Err(err).Msg("GitHub unreachable")
			writeError(w, http.StatusBadGateway, msgUnreachable)
			return
		}
		logger.Warn().Err(err).Msg("GitHub operation failed")
		writeError(w, http.StatusBadRequest, opErr.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &transportErr):
		logger.Error().Err(err).Msg("GitHub unreachable")
		writeError(w, http.StatusBadGateway, msgUnreachable)
	case errors.As(err, &hostErr):
		logger.Warn().Err(err).Msg("GitHub request failed")
		status := http.StatusBadGateway
		if hostErr.IsClientError() {
			status = http.StatusBadRequest
		}
		writeError(w, status, hostErr.Error())
	default:
		// CryptoError and anything unexpected
		logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// decodeJSON reads a bounded JSON body. It writes the 400 itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
