package predict

import (
	"errors"
	"fmt"
)

const (
	defaultPredictError    = "Gagal memproses data"
	defaultPlotError       = "Gagal membuat plot"
	defaultUnexpectedError = "Terjadi kesalahan"
)

// ValidationError is a problem with a Submission found before any request is
// made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrMissingFields = &ValidationError{"File CSV, tanggal mulai, dan tanggal selesai wajib diisi"}
	ErrNotCSV        = &ValidationError{"File harus berformat CSV"}
	ErrInvalidDate   = &ValidationError{"Format tanggal tidak valid"}
	ErrDateOrder     = &ValidationError{"Tanggal mulai harus sebelum atau sama dengan tanggal selesai"}
)

// ServiceError is a non-2xx response from the prediction service. Message is
// the response body, or a fixed fallback when the body is empty.
type ServiceError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Detail includes the endpoint and status, for logs.
func (e *ServiceError) Detail() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var serr *ServiceError
	if errors.As(err, &serr) {
		return serr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultUnexpectedError
}
