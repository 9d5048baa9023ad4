package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"github.com/spencer-p/tidecast/pkg/data"
	"github.com/spencer-p/tidecast/pkg/metrics"
	"github.com/spencer-p/tidecast/pkg/predict"
	"github.com/spencer-p/tidecast/pkg/sheet"
)

var errUploadTooLarge = &predict.ValidationError{Message: "Ukuran file melebihi batas"}

// FormState is everything the form page shows. It is rebuilt on every
// request from the session and the result cache.
type FormState struct {
	Action string

	StartDate string
	EndDate   string
	Error     string

	DownloadURL  string
	DownloadName string
	PlotURL      string
	Summary      string

	History []data.Submission
}

func (s *Server) makeIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.sessions.Get(r, sessionName)
		state := s.newState(r.Context())
		state.StartDate, _ = session.Values[sessionStartDate].(string)
		state.EndDate, _ = session.Values[sessionEndDate].(string)
		if id, ok := session.Values[sessionResult].(string); ok {
			if e, ok := s.results.Get(id); ok {
				s.showResult(&state, id, e)
			}
		}
		s.render(w, http.StatusOK, state)
	}
}

func (s *Server) makeSubmit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.sessions.Get(r, sessionName)

		// A new attempt starts from a clean slate, whatever happens next.
		s.release(session)
		s.results.Sweep()

		sub, err := s.readSubmission(w, r)
		session.Values[sessionStartDate] = sub.StartDate
		session.Values[sessionEndDate] = sub.EndDate

		var result *predict.Result
		if err == nil {
			result, err = s.client.Submit(r.Context(), sub)
		}

		outcome, code := classify(err)
		metrics.ObserveSubmission(outcome)
		s.record(r.Context(), sub, outcome, err)

		var e *entry
		var id string
		if err != nil {
			logFailure(err, outcome)
		} else {
			id = uuid.NewString()
			e = &entry{result: result, summary: summarize(result)}
			s.results.Set(id, e)
			session.Values[sessionResult] = id
			log.Info().
				Str("id", id).
				Str("start", result.StartDate).
				Str("end", result.EndDate).
				Int("bytes", len(result.Spreadsheet.Data)).
				Msg("prediction ready")
		}

		if err := session.Save(r, w); err != nil {
			log.Warn().Err(err).Msg("failed to save session")
		}

		state := s.newState(r.Context())
		state.StartDate = sub.StartDate
		state.EndDate = sub.EndDate
		state.Error = predict.Message(err)
		if e != nil {
			s.showResult(&state, id, e)
		}
		s.render(w, code, state)
	}
}

// release drops the session's previous result so its artifacts do not
// outlive the page that showed them.
func (s *Server) release(session *sessions.Session) {
	if id, ok := session.Values[sessionResult].(string); ok {
		s.results.Delete(id)
		delete(session.Values, sessionResult)
	}
}

// readSubmission extracts the form fields. A missing file is not an error
// here; Validate reports it along with missing dates.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (predict.Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return predict.Submission{}, errUploadTooLarge
		}
		return predict.Submission{}, fmt.Errorf("failed to parse form: %w", err)
	}

	sub := predict.Submission{
		StartDate: r.FormValue("start_date"),
		EndDate:   r.FormValue("end_date"),
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return sub, nil
	}
	if err != nil {
		return sub, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		return sub, fmt.Errorf("failed to read file: %w", err)
	}
	sub.File = &predict.File{Name: header.Filename, Data: buf}
	return sub, nil
}

func (s *Server) newState(ctx context.Context) FormState {
	state := FormState{Action: s.link("submit")}
	history, err := s.history.Recent(ctx, historyLength)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load history")
	}
	state.History = history
	return state
}

func (s *Server) showResult(state *FormState, id string, e *entry) {
	state.DownloadURL = s.link("results", id, "spreadsheet")
	state.DownloadName = e.result.Spreadsheet.Name
	state.Summary = e.summary
	if e.result.Plot.Image != nil {
		state.PlotURL = s.link("results", id, "plot")
	} else {
		state.PlotURL = e.result.Plot.URL
	}
}

func (s *Server) record(ctx context.Context, sub predict.Submission, outcome string, err error) {
	row := &data.Submission{
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
		Outcome:   outcome,
	}
	if sub.File != nil {
		row.FileName = sub.File.Name
	}
	if err != nil {
		row.Message = predict.Message(err)
	}
	if err := s.history.Record(ctx, row); err != nil {
		log.Warn().Err(err).Msg("failed to record submission")
	}
}

func (s *Server) render(w http.ResponseWriter, code int, state FormState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := s.index.Execute(w, state); err != nil {
		log.Error().Err(err).Msg("failed to execute template")
	}
}

// classify maps a submission error to its metrics outcome and HTTP status.
func classify(err error) (outcome string, code int) {
	var verr *predict.ValidationError
	var serr *predict.ServiceError
	switch {
	case err == nil:
		return metrics.OutcomeOK, http.StatusOK
	case errors.As(err, &verr):
		return metrics.OutcomeValidation, http.StatusBadRequest
	case errors.As(err, &serr):
		return metrics.OutcomeService, http.StatusBadGateway
	default:
		return metrics.OutcomeUnexpected, http.StatusInternalServerError
	}
}

func logFailure(err error, outcome string) {
	var serr *predict.ServiceError
	if errors.As(err, &serr) {
		log.Warn().Str("outcome", outcome).Msg(serr.Detail())
		return
	}
	log.Warn().Err(err).Str("outcome", outcome).Msg("submission failed")
}

// summarize describes the spreadsheet for the page. An unreadable workbook
// is still offered for download.
func summarize(result *predict.Result) string {
	sum, err := sheet.Summarize(result.Spreadsheet.Data)
	if err != nil {
		log.Debug().Err(err).Msg("could not summarize spreadsheet")
		return ""
	}
	return sum.String()
}
