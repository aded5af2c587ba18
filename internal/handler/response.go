package handler

import (
	"crypto/md5"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"crowdgov/internal/domain"
	"crowdgov/internal/ledger"
	"crowdgov/internal/middleware"
	"crowdgov/pkg/errors"
	"crowdgov/pkg/logger"
)

const maxBodyBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondCacheable writes data with an ETag and answers 304 when the client already has it
func respondCacheable(w http.ResponseWriter, r *http.Request, data interface{}) {
	etag := generateETag(data)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, data)
}

func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}

// respondError converts err to an AppError and writes the error envelope
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := toAppError(err)
	requestID := middleware.RequestIDFromContext(r.Context())

	if appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).WithField("request_id", requestID).Error("Request failed")
	} else {
		log.WithField("request_id", requestID).WithField("type", appErr.Type).Debug(appErr.Message)
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = requestID
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)
	respondJSON(w, appErr.StatusCode, response)
}

func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if kind, ok := domain.KindOf(err); ok {
		return fromKind(kind, err)
	}

	switch {
	case stderrors.Is(err, ledger.ErrInsufficientBalance),
		stderrors.Is(err, ledger.ErrInsufficientAllowance),
		stderrors.Is(err, ledger.ErrInsufficientReserve):
		return withKind(errors.NewInsufficientFundsError(err.Error()), "")
	case stderrors.Is(err, ledger.ErrNotAdmin):
		return errors.NewAuthorizationError(err.Error())
	case stderrors.Is(err, ledger.ErrInvalidAmount),
		stderrors.Is(err, ledger.ErrOverflow),
		stderrors.Is(err, ledger.ErrInvalidPrincipal):
		return errors.NewValidationError(err.Error(), nil)
	}
	return errors.NewInternalError("Internal server error", err)
}

func fromKind(kind domain.Kind, err error) *errors.AppError {
	var e *domain.Error
	message := err.Error()
	if stderrors.As(err, &e) {
		message = e.Message
	}

	switch {
	case kind == domain.KindNotFound:
		return withKind(errors.NewNotFoundError(message), kind)
	case kind.Group() == domain.GroupAuthorization:
		return withKind(errors.NewAuthorizationError(message), kind)
	case kind.Group() == domain.GroupInput:
		return withKind(errors.NewValidationError(message, nil), kind)
	default:
		return withKind(errors.NewConflictError(message), kind)
	}
}

func withKind(appErr *errors.AppError, kind domain.Kind) *errors.AppError {
	if kind == "" {
		return appErr
	}
	if appErr.Details == nil {
		appErr.Details = map[string]interface{}{}
	}
	appErr.Details["kind"] = string(kind)
	return appErr
}

// decodeJSON reads a size-limited JSON body into dst and validates it
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("Invalid request body", map[string]interface{}{"reason": err.Error()})
	}
	if err := validate.Struct(dst); err != nil {
		details := map[string]interface{}{}
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return errors.NewValidationError("Invalid request body", details)
	}
	return nil
}

// principalOf returns the authenticated caller or an authentication error
func principalOf(r *http.Request) (domain.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return domain.NoPrincipal, errors.NewAuthenticationError("Authentication required")
	}
	return p, nil
}

// campaignID parses the {id} URL parameter
func campaignID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewNotFoundError("not found")
	}
	return id, nil
}

// queryUint parses an optional unsigned query parameter
func queryUint(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("Invalid query parameter", map[string]interface{}{name: raw})
	}
	return v, nil
}
