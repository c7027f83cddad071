package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/config"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/inference"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/ingest"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/pipeline"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// withRunner loads config, opens the store and hands both to fn
func withRunner(fn func(cfg *config.Config, r *pipeline.Runner) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cfg, pipeline.NewRunner(cfg, s, nil))
}

func ingestCmd() *cobra.Command {
	var file, mode string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "load a raw whitespace-delimited sensor log into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(cfg *config.Config, r *pipeline.Runner) error {
				n, err := r.Ingest(cmd.Context(), file, mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d readings written to %s (%s)\n", n, cfg.Store.Path, mode)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "train_FD001.txt", "raw sensor log")
	cmd.Flags().StringVar(&mode, "mode", common.ModeReplace, "replace drops existing rows, append keeps them")
	return cmd
}

func appendCmd() *cobra.Command {
	var file string
	var sample bool

	cmd := &cobra.Command{
		Use:   "append",
		Short: "add new readings from in-service engines without touching existing rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == !sample {
				return fmt.Errorf("exactly one of --file or --sample is required")
			}
			return withRunner(func(cfg *config.Config, r *pipeline.Runner) error {
				var n int
				var err error
				if sample {
					readings := ingest.SampleNewReadings()
					err = r.Store(cmd.Context(), readings, common.ModeAppend)
					n = len(readings)
				} else {
					n, err = r.Ingest(cmd.Context(), file, common.ModeAppend)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d readings appended to %s\n", n, cfg.Store.Path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "raw sensor log with the new readings")
	cmd.Flags().BoolVar(&sample, "sample", false, "append two simulated readings for unit 100")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "label every stored reading with its RUL and write the labeled CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(cfg *config.Config, r *pipeline.Runner) error {
				if cmd.Flags().Changed("out") {
					cfg.Export.CSVPath = out
				}
				n, err := r.RunETL(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d labeled rows written to %s\n", n, cfg.Export.CSVPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "CSV path (default from config)")
	return cmd
}

func trainCmd() *cobra.Command {
	var (
		strategy     string
		testFraction float64
		source       string
		modelPath    string
		trees        int
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "fit the random forest, report held-out MAE and save the model",
		Long: "Fits the random forest and saves it, replacing any previous model.\n\n" +
			"--split=unit-holdout (default) keeps every cycle of an engine on one side of the split.\n" +
			"--split=row-random samples rows independently; cycles of one engine leak into both sides,\n" +
			"so its MAE is optimistic. It exists only for comparison with older models.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(cfg *config.Config, r *pipeline.Runner) error {
				flags := cmd.Flags()
				if flags.Changed("split") {
					cfg.Training.SplitStrategy = strategy
				}
				if flags.Changed("test-fraction") {
					cfg.Training.TestFraction = testFraction
				}
				if flags.Changed("model") {
					cfg.Training.ModelPath = modelPath
				}
				if flags.Changed("trees") {
					cfg.Training.Trees = trees
				}
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid configuration: %v", err)
				}

				report, err := r.RunTraining(cmd.Context(), source)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Split (%s): %d rows for train, %d rows for test (%d/%d units)\n",
					report.Strategy, report.TrainRows, report.TestRows, report.TrainUnits, report.TestUnits)
				fmt.Fprintf(out, "Mean absolute error: %.2f cycles\n", report.Metrics.MAE)
				fmt.Fprintf(out, "Model saved to %s\n", report.ModelPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&strategy, "split", common.StrategyUnitHoldout, "split strategy: unit-holdout or row-random")
	cmd.Flags().Float64Var(&testFraction, "test-fraction", 0.2, "share of units (or rows) held out for evaluation")
	cmd.Flags().StringVar(&source, "source", pipeline.SourceStore, "training data: store or csv (the exported labeled file)")
	cmd.Flags().StringVar(&modelPath, "model", "", "model artifact path (default from config)")
	cmd.Flags().IntVar(&trees, "trees", 100, "number of trees")
	return cmd
}

func predictCmd() *cobra.Command {
	var values string
	var features []string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "predict RUL for one feature vector with the saved model",
		Long: "Starts from the form defaults. --values replaces all 24 values in column order;\n" +
			"--feature name=value overrides single columns.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fv, err := parseVector(values, features)
			if err != nil {
				return err
			}

			p, err := inference.New(cfg.Training.ModelPath).Predict(cmd.Context(), fv)
			if err != nil {
				return err
			}
			klog.V(2).InfoS("Prediction", "rul", p.RUL, "strategy", p.Strategy)
			fmt.Fprintf(cmd.OutOrStdout(), "Estimated RUL: %d cycles remaining\n", p.Cycles)
			return nil
		},
	}

	cmd.Flags().StringVar(&values, "values", "", "comma-separated values for all 24 features in column order")
	cmd.Flags().StringArrayVar(&features, "feature", nil, "name=value override, repeatable")
	return cmd
}

func parseVector(values string, overrides []string) (types.FeatureVector, error) {
	fv := types.DefaultFeatureVector()

	if values != "" {
		parts := strings.Split(values, ",")
		if len(parts) != common.FeatureCount {
			return fv, fmt.Errorf("--values needs %d numbers, got %d", common.FeatureCount, len(parts))
		}
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return fv, fmt.Errorf("value %d (%s): %v", i+1, common.FeatureColumns[i], err)
			}
			fv[i] = v
		}
	}

	index := make(map[string]int, common.FeatureCount)
	for i, name := range common.FeatureColumns {
		index[name] = i
	}
	for _, o := range overrides {
		name, raw, ok := strings.Cut(o, "=")
		if !ok {
			return fv, fmt.Errorf("--feature %q is not name=value", o)
		}
		i, known := index[name]
		if !known {
			return fv, fmt.Errorf("unknown feature %q", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fv, fmt.Errorf("feature %s: %v", name, err)
		}
		fv[i] = v
	}
	return fv, nil
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "show row, unit and cycle counts of the stored readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			sum, err := s.Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d units, longest run %d cycles\n",
				cfg.Store.Table, sum.Rows, sum.Units, sum.MaxCycle)
			return nil
		},
	}
}
