package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/app"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/ingest"
	"github.com/andresuchdata/reseller-forecast/backend-go/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newTimeframeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "timeframe",
		Aliases: []string{"t"},
		Usage:   "Prediction horizon, e.g. 30d, 2w, 3m",
		EnvVars: []string{"FORECAST_DEFAULT_TIMEFRAME"},
	}
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("forecast failed")
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "forecast",
		Usage: "Predict inventory demand for reseller products",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "predict",
				Usage: "Predict demand for a product described in local files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "product",
						Usage:    "Product JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "history",
						Usage:    "Sales history file (.csv, .xlsx or .json)",
						Required: true,
					},
					newTimeframeFlag(),
				},
				Action: runPredict,
			},
			{
				Name:  "batch",
				Usage: "Predict demand for catalog products in the database",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "category",
						Usage: "Only predict products in this category",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of products, 0 for all",
					},
					&cli.BoolFlag{
						Name:  "export",
						Usage: "Upload a CSV report to object storage",
					},
					newTimeframeFlag(),
				},
				Action: runBatch,
			},
			{
				Name:  "reports",
				Usage: "Inspect exported batch reports",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List exported reports",
						Action: runReportsList,
					},
					{
						Name:  "fetch",
						Usage: "Download an exported report",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "key", Usage: "Report key", Required: true},
							&cli.StringFlag{Name: "out", Usage: "Destination file", Required: true},
						},
						Action: runReportsFetch,
					},
				},
			},
		},
	}
}

func runPredict(c *cli.Context) error {
	product, err := ingest.ReadProduct(c.String("product"))
	if err != nil {
		return err
	}
	history, err := ingest.ReadSalesHistory(c.String("history"))
	if err != nil {
		return err
	}

	a, err := app.Build(c.Context, config.Load(), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Service.PredictSnapshot(c.Context, domain.CatalogSnapshot{Product: product, History: history}, c.String("timeframe"))
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, report)
}

func runBatch(c *cli.Context) error {
	cfg := config.Load()
	if url := c.String("db-url"); url != "" {
		cfg.Database.URL = url
	}

	a, err := app.Build(c.Context, cfg, app.Options{Catalog: true, RequireCatalog: true, Storage: c.Bool("export")})
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	result, err := a.Service.PredictCatalog(c.Context, c.String("category"), c.Int("limit"), c.String("timeframe"))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "run %s: %d succeeded, %d failed in %s\n",
		result.RunID, result.Succeeded, result.Failed, time.Since(start).Round(time.Millisecond))
	for _, item := range result.Items {
		if item.Report == nil {
			fmt.Fprintf(c.App.Writer, "  %-20s error: %s\n", item.ProductID, item.Error)
			continue
		}
		p := item.Report.Prediction
		reorder := ""
		if o := item.Report.Outlook; o != nil && o.ShouldReorder {
			reorder = "  reorder now"
		}
		fmt.Fprintf(c.App.Writer, "  %-20s demand=%d confidence=%.2f reorder_qty=%d trend=%s%s\n",
			item.ProductID, p.PredictedDemand, p.Confidence, p.SuggestedReorderQuantity, p.SalesTrend().Label(), reorder)
	}

	if c.Bool("export") {
		key, err := a.Service.ExportBatch(c.Context, result)
		if err != nil {
			return fmt.Errorf("export batch report: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "report exported to %s\n", key)
	}
	return nil
}

func runReportsList(c *cli.Context) error {
	a, err := app.Build(c.Context, config.Load(), app.Options{Storage: true})
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := a.Service.ListReports(c.Context)
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Fprintf(c.App.Writer, "%s\t%d\n", r.Key, r.Size)
	}
	return nil
}

func runReportsFetch(c *cli.Context) error {
	a, err := app.Build(c.Context, config.Load(), app.Options{Storage: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.DownloadReport(c.Context, c.String("key"), c.String("out")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "saved %s\n", c.String("out"))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
