package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Problepo/internal/app"
	"github.com/Alias1177/Problepo/internal/bot"
	"github.com/Alias1177/Problepo/internal/config"
	"github.com/Alias1177/Problepo/internal/pipeline"
	"github.com/Alias1177/Problepo/internal/platform/logger"
	"github.com/Alias1177/Problepo/models"
)

// cliClient is the throttle identifier for every terminal run
const cliClient = "cli"

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run does the whole prediction and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	category := fs.String("category", "", "prediction category (finance, sports, entertainment, global, environment, technology)")
	timeframe := fs.String("timeframe", string(models.Timeframe1Month), "1week, 1month, 3months, 6months, 1year or 5years")
	extra := fs.String("context", "", "additional context for the prediction")
	quiet := fs.Bool("quiet", false, "skip the processing animation")
	asJSON := fs.Bool("json", false, "print the raw JSON result")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return exitFailed
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "console"
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	req := models.PredictionRequest{
		Topic:     strings.Join(fs.Args(), " "),
		Category:  models.Category(*category),
		Timeframe: models.Timeframe(*timeframe),
		Context:   *extra,
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintln(stderr, "usage: predict [flags] <topic>")
		fs.PrintDefaults()
		return exitUsage
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return exitFailed
	}
	defer a.Close()

	decision, err := a.Throttle.CheckAndConsume(ctx, cliClient)
	if err != nil {
		log.Warn().Err(err).Msg("Throttle store unavailable, continuing")
	} else if !decision.Allowed {
		fmt.Fprintf(stderr, "Too many predictions. Try again in %d seconds.\n", decision.RetryAfter)
		return exitFailed
	}

	var result *models.PredictionResult
	work := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		var err error
		result, err = a.Synthesizer.Synthesize(ctx, req)
		return err
	}

	if *quiet {
		err = work(ctx)
	} else {
		err = pipeline.New(nil, nil).Accompany(ctx, func(u pipeline.Update) { printUpdate(stderr, u) }, work)
		fmt.Fprintln(stderr)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate prediction")
		return exitFailed
	}

	if *asJSON {
		if err := printJSON(stdout, result); err != nil {
			log.Error().Err(err).Msg("Failed to encode result")
			return exitFailed
		}
		return exitOK
	}
	fmt.Fprintln(stdout, bot.FormatResult(result))
	return exitOK
}

// printUpdate redraws the current stage line in place
func printUpdate(w io.Writer, u pipeline.Update) {
	switch u.Status {
	case pipeline.StatusCompleted:
		fmt.Fprintf(w, "\r✅ %-30s %3d%%\n", u.Name, u.Progress)
	default:
		fmt.Fprintf(w, "\r⏳ %-30s %3d%%", u.Name, u.Progress)
	}
}
