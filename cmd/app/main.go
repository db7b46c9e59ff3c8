package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/hpml/internal"
	"github.com/starford/hpml/internal/evaluate"
	"github.com/starford/hpml/internal/features"
	"github.com/starford/hpml/internal/regression"
	"github.com/starford/hpml/internal/training"
	pkgconfig "github.com/starford/hpml/pkg/config"
)

var version = "dev"

const (
	defaultTrainData    = "data/raw/HousePriceDataset.csv"
	defaultEvaluateData = "data/raw/TestDataForPrediction.csv"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// artifactPaths prefers explicit flags over the configured model paths.
func artifactPaths(cmd *cli.Command, cfg *internal.Config) (model, meta string) {
	model, meta = cfg.Model.Path, cfg.Model.MetaPath
	if cmd.IsSet("model") {
		model = cmd.String("model")
	}
	if cmd.IsSet("meta") {
		meta = cmd.String("meta")
	}
	return model, meta
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func train(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := training.DefaultOptions()
	opts.DataPath = cmd.String("data")
	opts.ModelPath, opts.MetaPath = artifactPaths(cmd, cfg)
	opts.Target = cmd.String("target")
	opts.TestSize = cmd.Float("test-size")
	opts.Alpha = cmd.Float("alpha")
	opts.Seed = uint64(cmd.Uint("seed"))
	opts.ReferenceYear = int(cmd.Int("reference-year"))

	return internal.Train(ctx, opts, os.Stdout, internal.WithConfig(cfg))
}

func evaluateCmd(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := evaluate.Options{
		DataPath:   cmd.String("data"),
		OutputPath: cmd.String("output"),
	}
	opts.ModelPath, opts.MetaPath = artifactPaths(cmd, cfg)
	return internal.Evaluate(ctx, opts, os.Stdout, internal.WithConfig(cfg))
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr))
}

func artifactFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "model",
			Usage: "Path to the model bundle (default: model.path from config)",
		},
		&cli.StringFlag{
			Name:  "meta",
			Usage: "Path to the training metadata (default: model.meta_path from config)",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "hpml",
		Usage:   "House price model: training, HTTP prediction service and batch evaluation",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve predictions over HTTP",
				Action: serve,
			},
			{
				Name:   "train",
				Usage:  "Fit the model on a labeled dataset and write the bundle and metadata",
				Action: train,
				Flags: append(artifactFlags(),
					&cli.StringFlag{
						Name:  "data",
						Usage: "Training dataset (.csv or .xlsx)",
						Value: defaultTrainData,
					},
					&cli.StringFlag{
						Name:  "target",
						Usage: "Target column (default: auto-detect price or sale_price)",
					},
					&cli.FloatFlag{
						Name:  "test-size",
						Usage: "Held-out fraction in [0, 1)",
						Value: training.DefaultTestSize,
					},
					&cli.FloatFlag{
						Name:  "alpha",
						Usage: "Ridge penalty",
						Value: regression.DefaultAlpha,
					},
					&cli.UintFlag{
						Name:  "seed",
						Usage: "Seed for the train/test split",
						Value: training.DefaultSeed,
					},
					&cli.IntFlag{
						Name:  "reference-year",
						Usage: "Year used to compute house age",
						Value: features.DefaultReferenceYear,
					},
				),
			},
			{
				Name:   "evaluate",
				Usage:  "Predict prices for a dataset and write them next to the input columns",
				Action: evaluateCmd,
				Flags: append(artifactFlags(),
					&cli.StringFlag{
						Name:  "data",
						Usage: "Dataset to score (.csv or .xlsx)",
						Value: defaultEvaluateData,
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output file (.csv or .xlsx)",
						Value: evaluate.DefaultOutput,
					},
				),
			},
			{
				Name:   "mcp",
				Usage:  "Expose the model as MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
