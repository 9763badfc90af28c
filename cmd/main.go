package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richard-senior/matchpredict/internal/config"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/internal/processor"
	"github.com/richard-senior/matchpredict/pkg/metrics"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/server"
	"github.com/richard-senior/matchpredict/pkg/tools"
	"github.com/richard-senior/matchpredict/pkg/transport"
)

const usage = `usage: matchpredict <command> [flags]

commands:
  predict   simulate the unplayed fixtures in --data and export the table as CSV
  form      show one team's recent form
  load      import match data into a sqlite database
  serve     run the MCP server on stdin/stdout (default)
`

func main() {
	logger.SetShowDateTime(true)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.Error("matchpredict failed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "predict":
		return runPredict(ctx, args, stdout)
	case "form":
		return runForm(ctx, args, stdout)
	case "load":
		return runLoad(ctx, args, stdout)
	case "serve":
		return runServe(ctx, args)
	case "help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

// setup loads the config and applies its logging section
func setup(configPath, modelPath string, logOutput rune) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, err
	}
	if modelPath != "" {
		cfg.Model.Path = modelPath
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	logger.SetLogFile(cfg.Log.File)
	if logOutput == 0 {
		logOutput = cfg.LogOutput()
	}
	if err := logger.SetLogOutput(logOutput); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPredict(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	data := fs.String("data", "", "match data: file, http(s) url or sqlite:path")
	configPath := fs.String("config", "", "YAML config file")
	modelPath := fs.String("model", "", "YAML model weights file")
	out := fs.String("out", podds.DefaultCSVFile, "CSV output path")
	simulations := fs.Int("simulations", 0, "simulations per fixture (1000-50000)")
	lastN := fs.Int("last-n", 0, "form window size (1-10)")
	seed := fs.Int64("seed", -1, "random seed, negative for a time based seed")
	workers := fs.Int("workers", 0, "concurrent fixtures")
	separate := fs.Bool("separate-home-away", false, "home side uses home games only, away side away games only")
	save := fs.Bool("save", false, "store the predictions in the configured database")
	quiet := fs.Bool("quiet", false, "do not print the table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := setup(*configPath, *modelPath, 0)
	if err != nil {
		return err
	}
	req := processor.PredictRequest{
		Source:      *data,
		Simulations: *simulations,
		LastNGames:  *lastN,
		Workers:     *workers,
		OutputCSV:   *out,
		Save:        *save,
	}
	if *seed >= 0 {
		s := uint64(*seed)
		req.Seed = &s
	}
	if *separate {
		req.SeparateHomeAway = separate
	}

	res, err := processor.New(cfg).Predict(ctx, req)
	if res != nil && res.Table != nil && !*quiet {
		md, mdErr := res.Table.MarkdownSummary()
		if mdErr != nil {
			return mdErr
		}
		fmt.Fprintln(stdout, md)
	}
	if err != nil {
		return err
	}
	if res.CSVPath != "" {
		fmt.Fprintln(stdout, "Predictions written to", res.CSVPath)
	}
	if res.RunID != "" {
		fmt.Fprintln(stdout, "Run id", res.RunID)
	}
	return nil
}

func runForm(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("form", flag.ContinueOnError)
	data := fs.String("data", "", "match data: file, http(s) url or sqlite:path")
	configPath := fs.String("config", "", "YAML config file")
	team := fs.String("team", "", "team name")
	before := fs.String("before", "", "only matches before this date (YYYY-MM-DD)")
	lastN := fs.Int("last-n", 0, "form window size (1-10)")
	venue := fs.String("venue", "all", "all, home or away")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := setup(*configPath, "", 0)
	if err != nil {
		return err
	}
	req := processor.FormRequest{Source: *data, Team: *team, LastNGames: *lastN}
	switch *venue {
	case "all":
	case "home":
		req.Venue = podds.VenueHome
	case "away":
		req.Venue = podds.VenueAway
	default:
		return &podds.InvalidParameterError{Name: "venue", Value: *venue, Reason: "must be all, home or away"}
	}
	if *before != "" {
		if req.Before, err = time.Parse("2006-01-02", *before); err != nil {
			return &podds.InvalidParameterError{Name: "before", Value: *before, Reason: "must be a YYYY-MM-DD date"}
		}
	}

	form, err := processor.New(cfg).TeamForm(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s (%s, %d of %d games): %s scored %.2f conceded %.2f\n",
		form.Team, form.Venue, form.GamesUsed, form.WindowSize, form.FormString(),
		form.AvgGoalsScored, form.AvgGoalsConceded)
	return nil
}

func runLoad(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	data := fs.String("data", "", "match data: file or http(s) url")
	db := fs.String("db", "", "sqlite database path, defaults to data.db_path from the config")
	configPath := fs.String("config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := setup(*configPath, "", 0)
	if err != nil {
		return err
	}
	stats, err := processor.New(cfg).Import(ctx, *data, *db)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Imported %d matches (%d new, %d updated, %d skipped)\n",
		stats.Saved(), stats.Inserted, stats.Updated, stats.Skipped)
	return nil
}

// runServe speaks MCP over stdin/stdout, so logs go to the log file
func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	modelPath := fs.String("model", "", "YAML model weights file")
	metricsAddr := fs.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := setup(*configPath, *modelPath, 'f')
	if err != nil {
		return err
	}
	logger.Info("Starting matchpredict MCP server")

	p := processor.New(cfg)
	p.Metrics = metrics.New()

	addr := *metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", p.Metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Serving metrics on", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed:", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	s := server.New(transport.NewStdioTransport())
	s.RegisterDefaultTools(tools.NewToolbox(p))
	err = s.Start(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("MCP server shutting down")
	return err
}
