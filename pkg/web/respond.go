package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/intel"
	"github.com/ritzau/link-analyzer/pkg/kvstore"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/source"
	"github.com/ritzau/link-analyzer/pkg/tabular"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// badRequest marks client mistakes that have no sentinel of their own.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: logging.GetRequestID(r.Context())})
}

// fail maps err to a status code and writes it.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logging.ErrorContext(r.Context(), "request error", "error", err)
	}
	writeError(w, r, status, err.Error())
}

// statusFor maps pipeline errors onto HTTP: malformed requests are 400,
// well-formed files the pipeline cannot use are 422.
func statusFor(err error) int {
	var (
		br       *badRequest
		missing  *graph.MissingColumnsError
		tooLarge *http.MaxBytesError
		invalid  validator.ValidationErrors
	)
	switch {
	case errors.As(err, &br), errors.As(err, &invalid), errors.Is(err, analysis.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge), errors.Is(err, source.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, kvstore.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &missing),
		errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, tabular.ErrNoWorksheet),
		errors.Is(err, tabular.ErrInvalidJSONShape),
		errors.Is(err, tabular.ErrTooFewRows),
		errors.Is(err, tabular.ErrEmptyFile),
		errors.Is(err, intel.ErrEmptyReport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return err.Error()
	}
	parts := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		default:
			parts = append(parts, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// readUpload reads the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request) (model.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.File{}, err
		}
		return model.File{}, badRequestf("expected a multipart form: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return model.File{}, badRequestf("missing file field: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return model.File{}, err
	}
	ct := header.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		ct = ""
	}
	return model.NewFile(header.Filename, ct, data), nil
}
