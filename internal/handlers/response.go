// internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/handlers/middleware"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names in validation errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps domain errors to status codes. A failed commit never
// reports its cause to the client.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	ctx := r.Context()

	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError

	switch {
	case errors.Is(err, domain.ErrCommitFailed):
		log.ErrorContext(ctx, "sale commit failed", slog.String("error", err.Error()))
		middleware.WriteError(w, http.StatusInternalServerError, "commit_failed", "Failed to commit sale")
	case errors.As(err, &validationErr):
		middleware.WriteError(w, http.StatusBadRequest, "validation_failed", validationErr.Error())
	case errors.Is(err, domain.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		middleware.WriteError(w, http.StatusConflict, "duplicate_request",
			"A request with this idempotency key is already being processed")
	case errors.As(err, &notFoundErr):
		middleware.WriteError(w, http.StatusNotFound, "not_found", notFoundErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.ErrorContext(ctx, "request failed", slog.String("error", err.Error()))
		middleware.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// decodeJSON reads and validates a JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return validateStruct(dst)
}

// validateStruct converts the first validator failure into a ValidationError
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewValidationError(fieldPath(fe), describe(fe))
	}
	return domain.NewValidationError("body", err.Error())
}

// fieldPath drops the root struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		if fe.Param() == "0" {
			return "must be positive"
		}
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid", "uuid4":
		return "must be a UUID"
	}
	return "failed " + fe.Tag() + " validation"
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// queryInt parses an optional positive integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.NewValidationError(name, "must be a positive integer")
	}
	return n, nil
}

// dateRange reads from/to in the reporting time zone
func dateRange(r *http.Request, loc *time.Location, now time.Time) (domain.DateRange, error) {
	q := r.URL.Query()
	return domain.NewDateRange(q.Get("from"), q.Get("to"), loc, now)
}

func actorOrFail(w http.ResponseWriter, r *http.Request) (middleware.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing credentials")
	}
	return actor, ok
}
