// Command import-artifacts uploads the classifier and encoder files into the
// model_artifacts table so the API can run with ARTIFACT_SOURCE=postgres.
// With -export-encoders it instead writes the built-in vocabularies to disk.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/adapters/artifacts"
	"github.com/AmmarJamshed/FDA-checker/internal/application/services"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/clients/postgres"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
	"github.com/AmmarJamshed/FDA-checker/pkg/config"
	"github.com/AmmarJamshed/FDA-checker/pkg/secrets"
)

func main() {
	var modelPath, modelName, phasePath, trialPath, exportDir, exportFormat string

	flag.StringVar(&modelPath, "model", "", "classifier artifact file (default MODEL_PATH)")
	flag.StringVar(&modelName, "name", "", "name to store the classifier under (default MODEL_NAME)")
	flag.StringVar(&phasePath, "phase-encoder", "", "phase encoder file (default PHASE_ENCODER_PATH)")
	flag.StringVar(&trialPath, "trial-results-encoder", "", "trial results encoder file (default TRIAL_RESULTS_ENCODER_PATH)")
	flag.StringVar(&exportDir, "export-encoders", "", "write the built-in encoders to this directory and exit")
	flag.StringVar(&exportFormat, "format", entities.ArtifactFormatYAML, "format for -export-encoders (yaml or json)")
	flag.Parse()

	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv("")); err != nil {
		log.Fatal().Err(err).Msg("failed to load Vault secrets")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("import-artifacts", cfg.Log.Env, cfg.Log.Level)

	if exportDir != "" {
		paths, err := services.ExportBuiltinEncoders(exportDir, exportFormat)
		if err != nil {
			log.Fatal().Err(err).Str("dir", exportDir).Msg("failed to export encoders")
		}
		log.Info().Strs("files", paths).Msg("built-in encoders exported")
		return
	}

	if modelPath == "" {
		modelPath = cfg.Artifacts.ModelPath
	}
	if modelName == "" {
		modelName = cfg.Artifacts.ModelName
	}
	if phasePath == "" {
		phasePath = cfg.Artifacts.PhaseEncoderPath
	}
	if trialPath == "" {
		trialPath = cfg.Artifacts.TrialResultsEncoderPath
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	store := artifacts.NewPostgresStore(pgClient)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create model_artifacts table")
	}

	importer := services.NewArtifactImportService(artifacts.NewFileStore(""), store)

	if _, err := importer.ImportClassifier(ctx, modelPath, modelName); err != nil {
		log.Fatal().Err(err).Str("path", modelPath).Msg("classifier import failed")
	}

	encoders := []struct{ path, field string }{
		{phasePath, entities.FieldPhase},
		{trialPath, entities.FieldTrialResults},
	}
	for _, enc := range encoders {
		if enc.path == "" {
			log.Info().Str("field", enc.field).Msg("no encoder file configured, built-in vocabulary will be used")
			continue
		}
		if _, err := importer.ImportEncoder(ctx, enc.path, artifacts.NameFromPath(enc.path), enc.field); err != nil {
			log.Fatal().Err(err).Str("path", enc.path).Msg("encoder import failed")
		}
	}

	log.Info().Msg("import complete")
}
