package daemon

import (
	"errors"
	"net/http"

	"github.com/0ximu/mu/internal/graphalgo"
	"github.com/0ximu/mu/internal/lockfile"
	"github.com/0ximu/mu/internal/muql"
)

// errorEnvelope is the {kind, message, details} body carried under
// "error" in every error response.
type errorEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// statusFor maps an error to the HTTP status spec.md §7 assigns it.
func statusFor(err error) (int, errorEnvelope) {
	var (
		unresolved *muql.UnresolvedNode
		unknownTbl *muql.UnknownTable
		unknownCol *muql.UnknownColumn
		syntaxErr  *muql.SyntaxError
		timeoutErr *muql.QueryTimeout
		notFound   *graphalgo.NotFoundError
		lockHeld   *lockfile.ErrHeld
	)

	switch {
	case errors.As(err, &unresolved):
		return http.StatusNotFound, errorEnvelope{Kind: "UnresolvedNode", Message: err.Error()}
	case errors.As(err, &notFound):
		return http.StatusNotFound, errorEnvelope{Kind: "NotFound", Message: err.Error()}
	case errors.As(err, &unknownTbl):
		return http.StatusBadRequest, errorEnvelope{Kind: "UnknownTable", Message: err.Error()}
	case errors.As(err, &unknownCol):
		return http.StatusBadRequest, errorEnvelope{Kind: "UnknownColumn", Message: err.Error()}
	case errors.As(err, &syntaxErr):
		return http.StatusBadRequest, errorEnvelope{Kind: "SyntaxError", Message: err.Error()}
	case errors.As(err, &timeoutErr):
		return http.StatusBadRequest, errorEnvelope{Kind: "QueryTimeout", Message: err.Error()}
	case errors.As(err, &lockHeld):
		return http.StatusConflict, errorEnvelope{Kind: "LockError", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorEnvelope{Kind: "Internal", Message: err.Error()}
	}
}
