// Command check evaluates a single drug candidate from the command line.
//
// Exit status: 0 compliant, 1 non-compliant, 2 invalid input or no verdict,
// 3 configuration or model load failure, 4 evaluation or output failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/bootstrap"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/pkg/config"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

const (
	exitCompliant    = 0
	exitNonCompliant = 1
	exitInvalid      = 2
	exitStartup      = 3
	exitEvaluation   = 4
)

type evaluator interface {
	Evaluate(ctx context.Context, record *entities.DrugCandidateRecord) (*entities.Evaluation, error)
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)

	drugName := fs.String("drug-name", "", "drug name (not used by the model)")
	phase := fs.String("phase", "", "development phase: "+strings.Join(entities.PhaseValues, ", "))
	safety := fs.Int("safety", 0, "safety score (1-10)")
	efficacy := fs.Int("efficacy", 0, "efficacy score (1-10)")
	trialResults := fs.String("trial-results", "", "trial results: "+strings.Join(entities.TrialResultValues, ", "))
	asJSON := fs.Bool("json", false, "print the full evaluation as JSON")
	verbose := fs.Bool("v", false, "log model loading details to stderr")

	if err := fs.Parse(args); err != nil {
		return exitInvalid
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitStartup
	}

	svc, closeDeps, err := bootstrap.Build(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load model: %v\n", err)
		return exitStartup
	}
	defer closeDeps()

	return report(ctx, svc, &entities.DrugCandidateRecord{
		DrugName:     *drugName,
		Phase:        *phase,
		SafetyData:   *safety,
		EfficacyData: *efficacy,
		TrialResults: *trialResults,
	}, *asJSON, stdout, stderr)
}

// report evaluates record, prints the outcome and maps it to an exit status.
func report(ctx context.Context, svc evaluator, record *entities.DrugCandidateRecord, asJSON bool, stdout, stderr io.Writer) int {
	evaluation, err := svc.Evaluate(ctx, record)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
			fmt.Fprintf(stderr, "invalid input: %s\n", appErr.Message)
			return exitInvalid
		}
		fmt.Fprintf(stderr, "evaluation failed: %v\n", err)
		return exitEvaluation
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(evaluation); err != nil {
			fmt.Fprintf(stderr, "failed to write evaluation: %v\n", err)
			return exitEvaluation
		}
	} else {
		fmt.Fprintln(stdout, evaluation.Message)
		for _, w := range evaluation.Warnings {
			fmt.Fprintf(stderr, "warning: %s\n", w)
		}
	}

	switch {
	case !evaluation.HasVerdict():
		return exitInvalid
	case evaluation.Compliant:
		return exitCompliant
	default:
		return exitNonCompliant
	}
}
