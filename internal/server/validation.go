package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/voip8pbx/ShieldHire-sub000/internal/middleware"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

// Validator returns the shared request validator. Field names in errors use
// the json tag.
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidationErrorResponse lists per-field problems.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// decodeJSON reads and validates a request body into dst. It writes the 400
// response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := Validator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			middleware.WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:  "validation failed",
				Fields: fieldErrors(verrs),
			})
			return false
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			out[e.Field()] = "this field is required"
		case "email":
			out[e.Field()] = "invalid email format"
		case "min":
			out[e.Field()] = fmt.Sprintf("must be at least %s", e.Param())
		case "max":
			out[e.Field()] = fmt.Sprintf("must be at most %s", e.Param())
		case "oneof":
			out[e.Field()] = fmt.Sprintf("must be one of: %s", e.Param())
		case "required_with":
			out[e.Field()] = fmt.Sprintf("required together with %s", e.Param())
		default:
			out[e.Field()] = "is not valid"
		}
	}
	return out
}
