package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/bootstrap"
	"github.com/AmmarJamshed/FDA-checker/internal/evaluation"
	"github.com/AmmarJamshed/FDA-checker/pkg/config"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	goldenPath := fs.String("golden", "config/golden_cases.json", "labeled golden case file")
	minAccuracy := fs.Float64("min-accuracy", 0, "fail when accuracy is below this value")
	minF1 := fs.Float64("min-f1", 0, "fail when F1 is below this value")
	maxErrors := fs.Int("max-errors", -1, "fail when more cases error (negative disables)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return 3
	}

	cases, err := evaluation.LoadGoldenCases(*goldenPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load golden cases")
		return 3
	}
	if err := evaluation.ValidateGoldenCases(cases); err != nil {
		log.Error().Err(err).Msg("golden cases are invalid")
		return 3
	}

	svc, closeDeps, err := bootstrap.Build(ctx, cfg, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to load compliance model")
		return 3
	}
	defer closeDeps()

	summary, err := evaluation.NewRunner(svc).Run(ctx, cases)
	if err != nil {
		log.Error().Err(err).Msg("evaluation failed")
		return 3
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Fprintln(stdout, string(out))

	guardrails := evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MinAccuracy:  *minAccuracy,
		MinF1:        *minF1,
		MaxErrors:    *maxErrors,
		FailOnErrors: *maxErrors >= 0,
	})
	if violations := guardrails.Violations(summary); len(violations) > 0 {
		for _, v := range violations {
			log.Error().Str("violation", v).Msg("quality gate failed")
		}
		return 1
	}
	return 0
}
