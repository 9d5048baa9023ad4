package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/spencer-p/tidecast/pkg/cache"
	"github.com/spencer-p/tidecast/pkg/data"
	"github.com/spencer-p/tidecast/pkg/metrics"
	"github.com/spencer-p/tidecast/pkg/predict"
)

const (
	defaultResultTTL = time.Hour
	defaultMaxUpload = 32 << 20
	historyLength    = 10
)

//go:embed static/*.html
var content embed.FS

// Options are the collaborators of a Server.
type Options struct {
	Client   *predict.Client
	Sessions sessions.Store
	// History may be nil.
	History *data.Store
	// Prefix is the path the routes are mounted under, used to build links.
	Prefix    string
	ResultTTL time.Duration
	MaxUpload int64
}

// Server serves the prediction form and the artifacts it produced.
type Server struct {
	client    *predict.Client
	sessions  sessions.Store
	history   *data.Store
	results   *cache.Timed[*entry]
	prefix    string
	maxUpload int64
	index     *template.Template
}

// entry is a cached result plus what the page shows about it.
type entry struct {
	result  *predict.Result
	summary string
}

func New(opts Options) *Server {
	ttl := opts.ResultTTL
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/"
	}
	return &Server{
		client:    opts.Client,
		sessions:  opts.Sessions,
		history:   opts.History,
		results:   cache.NewTimed[*entry](ttl),
		prefix:    prefix,
		maxUpload: maxUpload,
		index:     template.Must(template.ParseFS(content, "static/index.template.html")),
	}
}

// Register mounts the routes on r.
func (s *Server) Register(r *mux.Router) {
	r.Use(metrics.LatencyHandler)
	r.Handle("/", s.makeIndex()).Methods(http.MethodGet)
	r.Handle("/submit", s.makeSubmit()).Methods(http.MethodPost)
	r.Handle("/results/{id}/spreadsheet", s.makeSpreadsheet()).Methods(http.MethodGet)
	r.Handle("/results/{id}/plot", s.makePlot()).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ok\n")
	})
}

func (s *Server) makeSpreadsheet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.results.Get(mux.Vars(r)["id"])
		if !ok {
			http.NotFound(w, r)
			return
		}
		sheet := e.result.Spreadsheet
		w.Header().Set("Content-Type", sheet.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": sheet.Name}))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(sheet.Data); err != nil {
			log.Warn().Err(err).Msg("failed to write spreadsheet")
		}
	}
}

func (s *Server) makePlot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.results.Get(mux.Vars(r)["id"])
		if !ok || e.result.Plot.Image == nil {
			http.NotFound(w, r)
			return
		}
		img := e.result.Plot.Image
		w.Header().Set("Content-Type", img.ContentType)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(img.Data); err != nil {
			log.Warn().Err(err).Msg("failed to write plot")
		}
	}
}

// link builds an absolute path under the server's prefix.
func (s *Server) link(elem ...string) string {
	return path.Join(append([]string{"/", s.prefix}, elem...)...)
}
