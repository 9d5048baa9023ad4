package predict

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/spencer-p/tidecast/pkg/timetricks"
)

// Form field names understood by the service.
const (
	fieldFile      = "file"
	fieldStartDate = "start_date"
	fieldEndDate   = "end_date"
)

// Validate checks a submission without touching the network. It returns one
// of the Err* validation errors.
func (s *Submission) Validate() error {
	if s.File == nil || s.StartDate == "" || s.EndDate == "" {
		return ErrMissingFields
	}
	if !strings.EqualFold(filepath.Ext(s.File.Name), ".csv") {
		return ErrNotCSV
	}
	start, err := timetricks.ParseISO(s.StartDate)
	if err != nil {
		return ErrInvalidDate
	}
	end, err := timetricks.ParseISO(s.EndDate)
	if err != nil {
		return ErrInvalidDate
	}
	if start.After(end) {
		return ErrDateOrder
	}
	return nil
}

// EncodeForm builds the multipart body shared by the predict and plot
// requests. start and end are already in DD/MM/YYYY.
func EncodeForm(f *File, start, end string) (body []byte, contentType string, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(fieldFile, filepath.Base(f.Name))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.WriteField(fieldStartDate, start); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField(fieldEndDate, end); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// SpreadsheetName is the suggested download name for a prediction window.
func SpreadsheetName(start, end string) string {
	return fmt.Sprintf("prediksi_%s_to_%s.xlsx",
		timetricks.Hyphenate(start),
		timetricks.Hyphenate(end))
}
