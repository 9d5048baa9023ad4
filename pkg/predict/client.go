package predict

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/spencer-p/tidecast/pkg/metrics"
	"github.com/spencer-p/tidecast/pkg/timetricks"
)

const (
	predictPath = "/predict"
	plotPath    = "/plot"
)

// Client talks to one prediction service.
type Client struct {
	base     string
	strategy PlotStrategy
	http     *http.Client
	now      func() time.Time
}

// NewClient validates cfg and returns a Client for it.
func NewClient(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid service URL %q: %w", base, err)
	}
	strategy := cfg.PlotStrategy
	if strategy == "" {
		strategy = PlotFetch
	}
	if _, err := ParsePlotStrategy(string(strategy)); err != nil {
		return nil, err
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		strategy: strategy,
		http:     hc,
		now:      time.Now,
	}, nil
}

// Strategy is the plot strategy in use.
func (c *Client) Strategy() PlotStrategy {
	return c.strategy
}

// Submit validates sub and requests the spreadsheet and, depending on the
// strategy, the plot. Both requests run concurrently and Submit returns once
// both are done; the first failure is returned and cancels the other request.
func (c *Client) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	start := timetricks.ToDDMMYYYY(sub.StartDate)
	end := timetricks.ToDDMMYYYY(sub.EndDate)
	body, contentType, err := EncodeForm(sub.File, start, end)
	if err != nil {
		return nil, err
	}

	result := &Result{StartDate: start, EndDate: end}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, _, err := c.post(gctx, predictPath, body, contentType, defaultPredictError)
		if err != nil {
			return err
		}
		result.Spreadsheet = Artifact{
			Name:        SpreadsheetName(start, end),
			ContentType: spreadsheetType,
			Data:        data,
		}
		return nil
	})

	switch c.strategy {
	case PlotURL:
		result.Plot.URL = c.PlotURL(start, end, c.now())
	default:
		g.Go(func() error {
			data, ct, err := c.post(gctx, plotPath, body, contentType, defaultPlotError)
			if err != nil {
				return err
			}
			if ct == "" {
				ct = http.DetectContentType(data)
			}
			result.Plot.Image = &Artifact{
				Name:        "plot",
				ContentType: ct,
				Data:        data,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// PlotURL returns a GET URL for the plot of a window given in DD/MM/YYYY. The
// "_" parameter only defeats caching.
func (c *Client) PlotURL(start, end string, now time.Time) string {
	vals := make(url.Values)
	vals.Add(fieldStartDate, start)
	vals.Add(fieldEndDate, end)
	vals.Add("_", timetricks.CacheBust(now))
	return c.base + plotPath + "?" + vals.Encode()
}

// post sends a multipart body to path and returns the response body and its
// content type. Non-2xx responses become a *ServiceError whose message is the
// body text, or fallback when the body is empty.
func (c *Client) post(ctx context.Context, path string, body []byte, contentType, fallback string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", contentType)

	t := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstreamLatency(path, "error", time.Since(t).Seconds())
		return nil, "", fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstreamLatency(path, strconv.Itoa(resp.StatusCode), time.Since(t).Seconds())

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(data)
		if msg == "" {
			msg = fallback
		}
		serr := &ServiceError{Endpoint: path, StatusCode: resp.StatusCode, Message: msg}
		log.Warn().Str("endpoint", path).Int("status", resp.StatusCode).Msg("prediction service rejected request")
		return nil, "", serr
	}

	return data, resp.Header.Get("Content-Type"), nil
}
