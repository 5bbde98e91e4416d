package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	searchml "github.com/quantfold/searchml"
	"github.com/quantfold/searchml/adapters"
	"github.com/quantfold/searchml/clients/pinecone"
	"github.com/quantfold/searchml/clients/splunk"
	"github.com/quantfold/searchml/clients/voyage"
	"github.com/quantfold/searchml/predictors/baseline"
	"github.com/quantfold/searchml/predictors/knn"
)

var (
	trainQuery    string
	testQuery     string
	featureFields []string
	labelField    string
	evalMode      string
	metricName    string
	predictorName string
	pageSize      int
	jobTimeout    time.Duration
	insecure      bool
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Train a predictor and measure its accuracy on a test query",
	Long: `Trains the chosen predictor on the events matched by --train, then scores it
against the events matched by --test.

With --mode search the predictor compiles its prediction into a search
expression and the service annotates every row; with --mode event each record
is predicted individually.`,
	Example: `  searchml eval --train 'index=web earliest=-7d latest=-1d' \
      --test 'index=web earliest=-1d' \
      --features status,bytes --label outcome \
      --predictor baseline --metric accuracy --mode search`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&trainQuery, "train", "", "search query matching the training events (required)")
	evalCmd.Flags().StringVar(&testQuery, "test", "", "search query matching the held-out test events (required)")
	evalCmd.Flags().StringSliceVar(&featureFields, "features", nil, "comma-separated feature field names")
	evalCmd.Flags().StringVar(&labelField, "label", "", "field to predict (required)")
	evalCmd.Flags().StringVar(&evalMode, "mode", "event", "evaluation mode: search or event")
	evalCmd.Flags().StringVar(&metricName, "metric", "accuracy", "metric: accuracy or mse")
	evalCmd.Flags().StringVar(&predictorName, "predictor", "baseline", "predictor: baseline or knn")
	evalCmd.Flags().IntVar(&pageSize, "page-size", searchml.DefaultPageSize, "records fetched per results page")
	evalCmd.Flags().DurationVar(&jobTimeout, "timeout", searchml.DefaultJobTimeout, "service-side job timeout")
	evalCmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS verification (self-signed Splunk certs)")

	evalCmd.MarkFlagRequired("train")
	evalCmd.MarkFlagRequired("test")
	evalCmd.MarkFlagRequired("label")
}

func runEval(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	client := splunk.NewClient(splunkURL,
		viper.GetString("splunk_username"),
		viper.GetString("splunk_password"),
	).SetLogf(logger.Debugf)
	if insecure {
		client.SetInsecure()
	}
	service := adapters.NewSplunkServiceWithClient(client)

	scorer, err := newScorer()
	if err != nil {
		return err
	}

	predictor, err := newPredictor(service)
	if err != nil {
		return err
	}

	eval, err := searchml.NewEvaluation(searchml.Config{
		Service:    service,
		Scorer:     scorer,
		PageSize:   pageSize,
		JobTimeout: jobTimeout,
		Logger:     logger,
		Progress: func(p searchml.Progress) {
			if verbose && p.State == searchml.StatePaging {
				logger.Infof("paging: %d/%d (observed %d, skipped %d)", p.Offset, p.Total, p.Observed, p.Skipped)
			}
		},
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var report *searchml.Report

	switch evalMode {
	case "search":
		sp, ok := predictor.(searchml.SearchPredictor)
		if !ok {
			return fmt.Errorf("predictor %q cannot compile a search expression; use --mode event", predictorName)
		}
		report, err = eval.EvaluateSearchPrediction(ctx, sp, trainQuery, testQuery, featureFields, labelField)
	case "event":
		report, err = eval.EvaluatePerEvent(ctx, predictor, trainQuery, testQuery, featureFields, labelField)
	default:
		return fmt.Errorf("unknown mode %q (want search or event)", evalMode)
	}
	if err != nil {
		return err
	}

	return renderReport(report)
}

func newLogger() *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core).Sugar()
}

func newScorer() (searchml.Scorer, error) {
	switch metricName {
	case "accuracy":
		return searchml.NewAccuracyScorer(), nil
	case "mse":
		return searchml.NewMeanSquaredErrorScorer(), nil
	default:
		return nil, fmt.Errorf("unknown metric %q (want accuracy or mse)", metricName)
	}
}

func newPredictor(service searchml.SearchService) (searchml.Predictor, error) {
	switch predictorName {
	case "baseline":
		if metricName == "mse" {
			return baseline.NewRegressor(service), nil
		}
		return baseline.NewClassifier(service), nil

	case "knn":
		embedding := voyage.NewService(viper.GetString("voyage_api_key"))

		pc, err := pinecone.NewService(viper.GetString("pinecone_api_key"))
		if err != nil {
			return nil, err
		}
		index, err := pc.ForIndex(viper.GetString("pinecone_host"), viper.GetString("pinecone_namespace"))
		if err != nil {
			return nil, err
		}

		mode := knn.ModeClassification
		if metricName == "mse" {
			mode = knn.ModeRegression
		}
		return knn.New(service, embedding, index, mode), nil

	default:
		return nil, fmt.Errorf("unknown predictor %q (want baseline or knn)", predictorName)
	}
}

func renderReport(report *searchml.Report) error {
	if outputFormat == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	table.Append("Metric", report.Metric)
	table.Append("Value", fmt.Sprintf("%.6f", report.Value))
	table.Append("Observed", fmt.Sprintf("%d", report.Observed))
	table.Append("Skipped", fmt.Sprintf("%d", report.Skipped))
	table.Append("Total", fmt.Sprintf("%d", report.Total))

	table.Render()
	return nil
}
