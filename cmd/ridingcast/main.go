package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridingcast/internal/config"
	"github.com/ridingcast/internal/db"
	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/pipeline"
	"github.com/ridingcast/internal/redistrict"
	"github.com/ridingcast/internal/source"
	"github.com/ridingcast/internal/web"
)

const envAPIKey = "RIDINGCAST_API_KEY"

var (
	configPath string
	verbose    bool
	localDebug bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ridingcast",
		Short: "District-level election winner prediction",
		Long: `Builds a cross-year training set from census characteristics and
district election results, ranks classifiers by test F1 and predicts
district winners from a national poll.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(); err != nil {
				return err
			}
			verbose = verbose || config.GetEnvBool(config.EnvVerbose, false)
			debug.Init(os.Stderr, verbose || localDebug)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ridingcast.yaml", "run config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&localDebug, "debug", false, "trace every pipeline stage")

	rootCmd.AddCommand(createPruneCmd())
	rootCmd.AddCommand(createTrainCmd())
	rootCmd.AddCommand(createPredictCmd())
	rootCmd.AddCommand(createExportCmd())
	rootCmd.AddCommand(createServeCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func loadRun() (*config.Run, error) {
	return config.Load(configPath)
}

func openStore(ctx context.Context, run *config.Run) (*db.Connection, error) {
	conn, err := db.NewConnection(ctx, run.Export.Driver, run.Export.DSN)
	if err != nil {
		return nil, err
	}
	debug.Step("Connected to report store", "driver", run.Export.Driver)
	return conn, nil
}

// createPruneCmd reports which census characteristics survive pruning
func createPruneCmd() *cobra.Command {
	var showKept bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Load the census and report pruned characteristics",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun()
			if err != nil {
				return err
			}
			src, err := pipeline.NewPipeline(run, localDebug).LoadCensus()
			if err != nil {
				return err
			}
			printPrune(os.Stdout, src, showKept)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showKept, "kept", false, "also list the kept characteristics")
	return cmd
}

func train(run *config.Run) (*pipeline.Pipeline, *pipeline.Sources, *pipeline.TrainResult, error) {
	p := pipeline.NewPipeline(run, localDebug)
	src, err := p.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	tr, err := p.Train(src)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, src, tr, nil
}

// createTrainCmd ranks the candidate models
func createTrainCmd() *cobra.Command {
	var seed int64
	var models []string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build the dataset, select features and rank models",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				run.Train.Seed = seed
			}
			if len(models) > 0 {
				run.Train.Models = models
				if err := run.Validate(); err != nil {
					return err
				}
			}
			_, src, tr, err := train(run)
			if err != nil {
				return err
			}
			printRankings(os.Stdout, tr, run.Train.Verbose)
			printFeatures(os.Stdout, pipeline.FeatureNames(src, tr.Features))
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "override train.seed")
	cmd.Flags().StringSliceVar(&models, "models", nil, "override train.models")
	return cmd
}

// createPredictCmd projects the polls onto districts and predicts winners
func createPredictCmd() *cobra.Command {
	var save, showDistricts bool
	var pollsPath, weightsPath string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Train, then predict district winners from a national poll",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun()
			if err != nil {
				return err
			}
			if pollsPath != "" {
				run.Predict.Polls = pollsPath
			}
			if weightsPath != "" {
				run.Predict.Weights = weightsPath
			}
			if run.Predict.Polls == "" {
				return fmt.Errorf("%w: predict needs predict.polls or --polls", config.ErrInvalid)
			}
			if err := run.Validate(); err != nil {
				return err
			}

			polls, err := source.ReadPolls(run.Predict.Polls)
			if err != nil {
				return err
			}
			var weights redistrict.Weights
			if run.Predict.Weights != "" {
				weights, err = source.ReadWeights(run.Predict.Weights, run.Predict.WeightColumns, source.Options{Encoding: run.Elections.Encoding})
				if err != nil {
					return err
				}
			}

			p, src, tr, err := train(run)
			if err != nil {
				return err
			}
			fc, err := p.Predict(src, tr, polls, weights)
			if err != nil {
				return err
			}
			printForecast(os.Stdout, tr.BestName, fc)
			if showDistricts {
				printDistricts(os.Stdout, fc, src.Districts)
			}

			if !save {
				return nil
			}
			ctx := cmd.Context()
			conn, err := openStore(ctx, run)
			if err != nil {
				return err
			}
			defer conn.Close()
			id, err := conn.SaveReport(ctx, p.PredictReport(src, tr, fc))
			if err != nil {
				return err
			}
			debug.Step("Saved prediction report", "run", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the forecast in the report database")
	cmd.Flags().BoolVar(&showDistricts, "districts", false, "list the predicted winner of every district")
	cmd.Flags().StringVar(&pollsPath, "polls", "", "override predict.polls")
	cmd.Flags().StringVar(&weightsPath, "weights", "", "override predict.weights")
	return cmd
}

// createExportCmd trains and stores the report and merged dataset
func createExportCmd() *cobra.Command {
	var withDataset bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Train and store the ranking report in the report database",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun()
			if err != nil {
				return err
			}
			p, src, tr, err := train(run)
			if err != nil {
				return err
			}
			printRankings(os.Stdout, tr, run.Train.Verbose)

			ctx := cmd.Context()
			conn, err := openStore(ctx, run)
			if err != nil {
				return err
			}
			defer conn.Close()

			id, err := conn.SaveReport(ctx, p.TrainReport(src, tr))
			if err != nil {
				return err
			}
			if withDataset {
				if err := conn.SaveDataset(ctx, id, tr.Dataset); err != nil {
					return err
				}
			}
			debug.Step("Saved training report", "run", id, "dataset", withDataset)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDataset, "dataset", true, "also store the merged training dataset")
	return cmd
}

// createServeCmd serves stored reports over HTTP
func createServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored reports as a JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, err := openStore(ctx, run)
			if err != nil {
				return err
			}
			defer conn.Close()

			cfg := web.DefaultConfig()
			cfg.Addr = run.Serve.Addr
			if addr != "" {
				cfg.Addr = addr
			}
			cfg.APIKey = config.GetEnv(envAPIKey, "")
			return web.NewServer(cfg, conn).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override serve.addr")
	return cmd
}
