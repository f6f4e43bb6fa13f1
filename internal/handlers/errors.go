package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"harmonia/internal/deathpenalty"
	"harmonia/internal/security"
	"harmonia/internal/service"
	"harmonia/internal/validation"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorBody{Error: userMsg})
}

// respondServiceError maps domain errors to a status; anything unknown is logged as a 500
func respondServiceError(w http.ResponseWriter, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, verr.Error(), "", nil)
	case errors.Is(err, service.ErrPlayerExists):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)
	case errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, deathpenalty.ErrEchoNotFound),
		errors.Is(err, service.ErrUnknownReport):
		respondWithError(w, http.StatusNotFound, err.Error(), "", nil)
	case errors.Is(err, deathpenalty.ErrNotAllowed):
		respondWithError(w, http.StatusForbidden, err.Error(), "", nil)
	case errors.Is(err, deathpenalty.ErrTooFar),
		errors.Is(err, deathpenalty.ErrNothingToRecover):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", nil)
		return false
	}
	return true
}
