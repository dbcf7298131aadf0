package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// interface {} == any
func WriteJson(w http.ResponseWriter, statusCode int, data any) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data) //struct to json
}

func Success(w http.ResponseWriter, statusCode int, data any) {
	WriteJson(w, statusCode, data)
}

func Error(w http.ResponseWriter, err error) {

	var statusCode int
	var errorResponse ErrorResponse

	if appErr, ok := errors.IsAppError(err); ok {
		statusCode = appErr.StatusCode
		errorResponse = ErrorResponse{
			Error:   appErr.Message,
			Details: appErr.Detail,
			Code:    appErr.Code,
		}
	} else {
		statusCode = http.StatusInternalServerError
		errorResponse = ErrorResponse{
			Error: "An unexpected error occurred",
			Code:  errors.ErrCodeInternal,
		}
	}

	WriteJson(w, statusCode, errorResponse)
}

// ValidationError reports the first failing field the way the catalog forms
// expect it: "Missing or empty field: <json name>".
func ValidationError(w http.ResponseWriter, errs validator.ValidationErrors) {

	if len(errs) == 0 {
		Error(w, errors.ValidationError("Validation failed"))
		return
	}

	err := errs[0]

	var message string

	switch err.Tag() {
	case "required", "required_without":
		Error(w, errors.MissingFieldError(err.Field()))
		return
	case "min":
		if err.Kind() == reflect.String {
			Error(w, errors.MissingFieldError(err.Field()))
			return
		}
		message = fmt.Sprintf("Field %s must be at least %s", err.Field(), err.Param())
	case "email":
		message = fmt.Sprintf("Field %s must be a valid email address", err.Field())
	case "gt":
		message = fmt.Sprintf("Field %s must be greater than %s", err.Field(), err.Param())
	case "gte":
		message = fmt.Sprintf("Field %s must be at least %s", err.Field(), err.Param())
	case "lt", "lte":
		message = fmt.Sprintf("Field %s must be at most %s", err.Field(), err.Param())
	case "oneof":
		message = fmt.Sprintf("Field %s must be one of: %s", err.Field(), err.Param())
	default:
		message = fmt.Sprintf("Field %s is invalid: %s=%s", err.Field(), err.Tag(), err.Param())
	}

	Error(w, errors.ValidationError(message))
}
