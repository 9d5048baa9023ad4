package predict

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	spreadsheetType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File is an uploaded CSV of tide observations.
type File struct {
	Name string
	Data []byte
}

// Submission is one attempt at a prediction. It is built fresh for every
// submit; see Validate.
type Submission struct {
	File *File
	// Start and end of the prediction window as YYYY-MM-DD.
	StartDate string
	EndDate   string
}

// Artifact is a binary result held locally so it can be downloaded or
// displayed later.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Plot references the prediction plot. Image is set when the plot was fetched
// (PlotFetch); URL is set when the plot is left for the viewer to load
// (PlotURL).
type Plot struct {
	Image *Artifact
	URL   string
}

// Result is a successful prediction.
type Result struct {
	// Dates as sent to the service, DD/MM/YYYY.
	StartDate   string
	EndDate     string
	Spreadsheet Artifact
	Plot        Plot
}

// PlotStrategy selects how the plot is obtained.
//
// PlotFetch POSTs the submission to the plot endpoint alongside the
// spreadsheet request, so a failure carries the service's error text.
// PlotURL issues no request and instead hands back a cache-busted GET URL;
// load failures are then only visible to whatever displays the image.
type PlotStrategy string

const (
	PlotFetch PlotStrategy = "fetch"
	PlotURL   PlotStrategy = "url"
)

// ParsePlotStrategy accepts "fetch" or "url"; the empty string means
// PlotFetch.
func ParsePlotStrategy(s string) (PlotStrategy, error) {
	switch PlotStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PlotFetch:
		return PlotFetch, nil
	case PlotURL:
		return PlotURL, nil
	default:
		return "", fmt.Errorf("unknown plot strategy %q, want %q or %q", s, PlotFetch, PlotURL)
	}
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	PlotStrategy PlotStrategy
	// HTTPClient defaults to a client without a timeout.
	HTTPClient *http.Client
}
