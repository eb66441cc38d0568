package order

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindIntegrity  Kind = "integrity_anomaly"
	KindUpstream   Kind = "upstream"
	KindSecurity   Kind = "security"
	KindInternal   Kind = "internal"
)

var (
	ErrOrderNotFound    = errors.New("Order not found")
	ErrNotManualPayment = errors.New("Proof of transfer is only accepted for manual payment channels")
)

// AppError classifies a failure for the HTTP layer. Message is safe to show to clients.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// StatusCode maps the kind to an HTTP status. A missing event or channel on
// checkout is a client error, hence 400 for not-found.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindNotFound, KindSecurity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func validationError(msg string) *AppError { return &AppError{Kind: KindValidation, Message: msg} }
func notFoundError(msg string) *AppError   { return &AppError{Kind: KindNotFound, Message: msg} }

func internalError(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of an *AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// OrderCreationError is returned by CreateOrder for unexpected failures. It carries
// whatever identifiers were produced before the failure.
type OrderCreationError struct {
	OrderReference string
	OrderID        int64
	Err            error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("order creation failed for %s: %v", e.OrderReference, e.Err)
}

func (e *OrderCreationError) Unwrap() error { return e.Err }

// WebhookError represents an error that occurred during webhook processing
type WebhookError struct {
	Category      string // "validation", "not_found", "processing"
	StatusCode    int    // HTTP status code
	PublicError   string // Safe to expose to clients
	InternalError string // Detailed error for logs only
	OriginalErr   error  // Underlying error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error { return e.OriginalErr }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// validateStruct runs the struct tags and folds failures into one ValidationError.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &AppError{Kind: KindValidation, Message: "Invalid request", Err: err}
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fieldPath(fe), validationMessage(fe)))
	}
	sort.Strings(msgs)
	return validationError(strings.Join(msgs, "; "))
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}
