package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"survivaldash/adapters/excel"
	"survivaldash/app"
	"survivaldash/domain/prediction"
	"survivaldash/domain/query"
	"survivaldash/internal"
	"survivaldash/internal/config"
	"survivaldash/internal/container"
	"survivaldash/internal/migration"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "survivaldash-cli",
		Short: "Load, query and score the passenger warehouse from the command line",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newQueryCmd(),
		newPredictCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open loads the configuration the same way the dashboard does.
func open(ctx context.Context, opts container.Options) (*container.Container, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(internal.LogOptions{
		Level: internal.ParseLogLevel(cfg.Log.Level),
		File:  cfg.Log.File,
	})
	return container.New(ctx, cfg, logger, opts)
}

func newSeedCmd() *cobra.Command {
	var truncate bool

	cmd := &cobra.Command{
		Use:   "seed [file.csv|file.xlsx]",
		Short: "Create the passenger table and load it from a CSV or XLSX file",
		Long: `Create the passenger table if needed and bulk-load rows from a file whose
header matches the table columns (PassengerId, Survived, Pclass, Name, Sex,
Age, SibSp, Parch, Ticket, Fare, Cabin, Embarked).

Example: survivaldash-cli seed titanic.csv --truncate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), args[0], truncate)
		},
	}

	cmd.Flags().BoolVar(&truncate, "truncate", false, "Delete existing rows before loading")
	return cmd
}

func runSeed(ctx context.Context, path string, truncate bool) error {
	data, err := excel.NewDataReader(path).ReadData()
	if err != nil {
		return err
	}
	rows, err := data.Passengers()
	if err != nil {
		return err
	}

	c, err := open(ctx, container.Options{Migrate: true, SkipOptions: true})
	if err != nil {
		return err
	}
	defer c.Close()

	table := c.Config.Warehouse.Table
	if truncate {
		if _, err := c.Session.DB().ExecContext(ctx, "DELETE FROM "+query.QuoteIdent(table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	if err := migration.InsertPassengers(ctx, c.Session.DB(), table, rows); err != nil {
		return err
	}
	fmt.Printf("Loaded %d passengers into %s\n", len(rows), table)
	return nil
}

func newQueryCmd() *cobra.Command {
	var (
		enabled   []string
		values    []string
		submitted bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run the survival analysis for a set of filters and print it as JSON",
		Long: `Enable filters by name and give widget values as id=value pairs. Repeat a
multiselect id for several values; sliders take <id>_low and <id>_high.

Example: survivaldash-cli query --enable Gender --enable Class \
    --value gender_selectbox=female --value class_selectbox=1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := url.Values{}
			for _, kv := range values {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("value %q is not id=value", kv)
				}
				form.Add(k, v)
			}
			return runQuery(cmd.Context(), app.AnalysisRequest{Enabled: enabled, Form: form, Submitted: submitted})
		},
	}

	cmd.Flags().StringArrayVar(&enabled, "enable", nil, "Filter to enable, by name (repeatable)")
	cmd.Flags().StringArrayVar(&values, "value", nil, "Widget value as id=value (repeatable)")
	cmd.Flags().BoolVar(&submitted, "submitted", true, "Apply the filter values (false shows unfiltered data)")
	return cmd
}

func runQuery(ctx context.Context, req app.AnalysisRequest) error {
	c, err := open(ctx, container.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.Analysis.Run(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func newPredictCmd() *cobra.Command {
	req := prediction.Request{
		Sex:      prediction.Sexes[0],
		Age:      prediction.DefaultAge,
		Pclass:   prediction.Classes[0],
		Fare:     prediction.DefaultFare,
		Embarked: prediction.Ports[0],
	}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one passenger with the warehouse survival function",
		Long: `Example: survivaldash-cli predict --sex female --age 4 --class 1 --fare 100 --port "Cherbourg, France"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), req)
		},
	}

	cmd.Flags().StringVar(&req.Sex, "sex", req.Sex, "female or male")
	cmd.Flags().IntVar(&req.Age, "age", req.Age, fmt.Sprintf("Age, %d..%d", prediction.MinAge, prediction.MaxAge))
	cmd.Flags().IntVar(&req.Pclass, "class", req.Pclass, "Ticket class, 1..3")
	cmd.Flags().IntVar(&req.Fare, "fare", req.Fare, fmt.Sprintf("Fare, %d..%d", prediction.MinFare, prediction.MaxFare))
	cmd.Flags().StringVar(&req.Embarked, "port", req.Embarked, "Port of departure")
	return cmd
}

func runPredict(ctx context.Context, req prediction.Request) error {
	c, err := open(ctx, container.Options{SkipOptions: true})
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := c.Prediction.Predict(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(strings.TrimPrefix(out.Message, "###")))
	return nil
}
