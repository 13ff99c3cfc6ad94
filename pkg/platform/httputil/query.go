package httputil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	dErrors "dataportal/pkg/domain-errors"
)

// QueryBinder is implemented by request types read from the URL query.
type QueryBinder interface {
	BindQuery(values url.Values)
}

// Normalizable is implemented by request types that fill defaults or trim
// input before validation.
type Normalizable interface {
	Normalize()
}

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// PrepareRequest normalizes then validates req.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeQuery binds the URL query into a new T and prepares it. On failure it
// writes the error response and returns nil, false.
//
// Usage:
//
//	req, ok := httputil.DecodeQuery[ViewQuery](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func DecodeQuery[T any, PT interface {
	*T
	QueryBinder
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := PT(new(T))
	req.BindQuery(r.URL.Query())

	if err := PrepareRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}
	return (*T)(req), true
}
