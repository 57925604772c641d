package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set. It writes the error response itself and
// reports whether the handler should continue.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return false
		}
	}

	if err := h.validate.StructCtx(r.Context(), dst); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return false
		}
		msgs := make([]string, len(fields))
		for i, f := range fields {
			// Namespace starts with the Go struct name.
			_, field, _ := strings.Cut(f.Namespace(), ".")
			msgs[i] = fmt.Sprintf("invalid '%s' (%s)", field, f.Tag())
		}
		writeError(w, http.StatusBadRequest, codeValidationFailed, strings.Join(msgs, ", "))
		return false
	}
	return true
}

// parseTime parses an optional RFC 3339 timestamp.
func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
