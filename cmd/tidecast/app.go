package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/spencer-p/tidecast/pkg/predict"
	"github.com/spencer-p/tidecast/pkg/sheet"
	"github.com/spencer-p/tidecast/pkg/timetricks"
)

var apiFlag = &cli.StringFlag{
	Name:    "api",
	Usage:   "base URL of the prediction service",
	Value:   predict.DefaultBaseURL,
	EnvVars: []string{"API_URL"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tidecast",
		Usage: "request tide predictions from a CSV of observations",
		Commands: []*cli.Command{
			predictCommand(),
			plotURLCommand(),
		},
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "upload a CSV and save the predicted spreadsheet and plot",
		Flags: []cli.Flag{
			apiFlag,
			&cli.StringFlag{Name: "file", Usage: "CSV of observations"},
			&cli.StringFlag{Name: "start", Usage: "first day, YYYY-MM-DD"},
			&cli.StringFlag{Name: "end", Usage: "last day, YYYY-MM-DD"},
			&cli.StringFlag{Name: "plot-strategy", Value: string(predict.PlotFetch), Usage: "fetch or url"},
			&cli.StringFlag{Name: "out", Value: ".", Usage: "output directory"},
			&cli.BoolFlag{Name: "summary", Usage: "print a summary of the spreadsheet"},
			&cli.DurationFlag{Name: "timeout", Usage: "give up after this long (0 waits forever)"},
		},
		Action: runPredict,
	}
}

func plotURLCommand() *cli.Command {
	return &cli.Command{
		Name:  "plot-url",
		Usage: "print a cache-busted plot URL for a date range",
		Flags: []cli.Flag{
			apiFlag,
			&cli.StringFlag{Name: "start", Required: true, Usage: "first day, YYYY-MM-DD"},
			&cli.StringFlag{Name: "end", Required: true, Usage: "last day, YYYY-MM-DD"},
		},
		Action: func(c *cli.Context) error {
			sub := predict.Submission{
				File:      &predict.File{Name: "unused.csv"},
				StartDate: c.String("start"),
				EndDate:   c.String("end"),
			}
			if err := sub.Validate(); err != nil {
				return cli.Exit(predict.Message(err), 2)
			}
			client, err := predict.NewClient(predict.Config{BaseURL: c.String("api"), PlotStrategy: predict.PlotURL})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, client.PlotURL(
				timetricks.ToDDMMYYYY(sub.StartDate),
				timetricks.ToDDMMYYYY(sub.EndDate),
				time.Now()))
			return nil
		},
	}
}

func runPredict(c *cli.Context) error {
	strategy, err := predict.ParsePlotStrategy(c.String("plot-strategy"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	client, err := predict.NewClient(predict.Config{
		BaseURL:      c.String("api"),
		PlotStrategy: strategy,
	})
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	sub := predict.Submission{
		StartDate: c.String("start"),
		EndDate:   c.String("end"),
	}
	if name := c.String("file"); name != "" {
		data, err := os.ReadFile(name)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to read %s: %v", name, err), 2)
		}
		sub.File = &predict.File{Name: name, Data: data}
	}

	ctx := c.Context
	if d := c.Duration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	log.Info().Str("api", c.String("api")).Str("start", sub.StartDate).Str("end", sub.EndDate).Msg("requesting prediction")
	result, err := client.Submit(ctx, sub)
	if err != nil {
		var verr *predict.ValidationError
		if errors.As(err, &verr) {
			return cli.Exit(predict.Message(err), 2)
		}
		return cli.Exit(predict.Message(err), 1)
	}

	out := c.String("out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	sheetPath := filepath.Join(out, result.Spreadsheet.Name)
	if err := os.WriteFile(sheetPath, result.Spreadsheet.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "spreadsheet: %s\n", sheetPath)

	if img := result.Plot.Image; img != nil {
		plotPath := filepath.Join(out, "plot"+imageExt(img.ContentType))
		if err := os.WriteFile(plotPath, img.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "plot: %s\n", plotPath)
	} else {
		fmt.Fprintf(c.App.Writer, "plot: %s\n", result.Plot.URL)
	}

	if c.Bool("summary") {
		printSummary(c.App.Writer, result.Spreadsheet.Data)
	}
	return nil
}

func printSummary(w io.Writer, data []byte) {
	sum, err := sheet.Summarize(data)
	if err != nil {
		log.Warn().Err(err).Msg("could not summarize spreadsheet")
		return
	}
	fmt.Fprintf(w, "summary: %s\n", sum)
}

func imageExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
