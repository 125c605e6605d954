package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"assetdesk/app"
	"assetdesk/domain/importing/mapping"
	"assetdesk/internal"
	"assetdesk/internal/config"
	"assetdesk/internal/container"
	"assetdesk/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "assetdesk-cli",
		Short:         "Map messy equipment inventory spreadsheets onto the canonical schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMapCmd(),
		newImportCmd(),
		newSchemaCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadContainer builds engines and readers from the environment, with the
// profile or schema file flags taking precedence. Database settings are only
// validated when withDB is set.
func loadContainer(profile, schemaFile string, withDB bool) (*container.Container, error) {
	load := config.LoadOffline
	if withDB {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if profile != "" {
		cfg.Import.Profile = profile
	}
	if schemaFile != "" {
		cfg.Import.SchemaFile = schemaFile
	}
	logger := internal.NewConfiguredLogger(cfg.Log.Level, "console")
	return container.New(cfg, logger)
}

func newMapCmd() *cobra.Command {
	var profile, schemaFile string

	cmd := &cobra.Command{
		Use:   "map [file]",
		Short: "Map a spreadsheet and print the column mapping and records as JSON",
		Long: `Read an .xlsx, .csv or .json sheet, classify its header and normalize
every row. Nothing is persisted.

Example: assetdesk-cli map inventaire.xlsx --profile it`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(profile, schemaFile, false)
			if err != nil {
				return err
			}
			result, err := previewFile(cmd.Context(), c, args[0], profile)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Schema profile (it, telecom)")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "Schema YAML file overriding the built-in profile")
	return cmd
}

func newImportCmd() *cobra.Command {
	var profile, schemaFile string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Map a spreadsheet and store its records",
		Long: `Map a spreadsheet and persist every record in the configured database
(DB_DRIVER, DATABASE_URL). Records whose identifier already exists are
skipped. The import report is printed as Markdown.

Example: DB_DRIVER=sqlite3 assetdesk-cli import inventaire.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(profile, schemaFile, true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer c.Shutdown(context.Background())

			db, err := container.OpenDatabase(c.Config.Database)
			if err != nil {
				return err
			}
			if err := c.InitWithDatabase(ctx, db); err != nil {
				db.Close()
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			batch, err := c.ImportService.Import(ctx, app.ImportRequest{
				FileName: filepath.Base(args[0]),
				Content:  f,
				Profile:  profile,
			})
			if err != nil {
				return err
			}
			fmt.Print(app.RenderReport(batch))
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Schema profile (it, telecom)")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "Schema YAML file overriding the built-in profile")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	var profile, schemaFile string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the active schema profile as YAML",
		Long: `Print the active schema document. The output can be edited and passed
back with --schema or SCHEMA_FILE.

Example: assetdesk-cli schema --profile telecom > telecom.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(profile, schemaFile, false)
			if err != nil {
				return err
			}
			out, err := c.Schema.Document().Marshal()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Schema profile (it, telecom)")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "Schema YAML file to validate and print")
	return cmd
}

func newDemoCmd() *cobra.Command {
	var (
		rows int
		seed int64
		out  string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate a messy inventory sheet and map it",
		Long: `Generate a synthetic inventory with abbreviated headers, combined
fields, serial dates and free-text specifications, map it with the it
profile and compare the records against the generated truth.

Example: assetdesk-cli demo --rows 100 --seed 7 --out demo.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), rows, seed, out)
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 40, "Number of equipment rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&out, "out", "", "Also write the generated sheet to this .xlsx file")
	return cmd
}

func runDemo(ctx context.Context, rows int, seed int64, out string) error {
	genCfg := testkit.DefaultInventoryConfig()
	genCfg.Rows = rows
	genCfg.Seed = seed
	raw, truth := testkit.NewInventoryGenerator(genCfg).Generate()

	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := testkit.WriteWorkbook(raw, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
	}

	c, err := loadContainer("it", "", false)
	if err != nil {
		return err
	}
	svc := app.NewImportService(c.Engines, c.Readers, nil, nil, app.WithWorkers(c.Config.Import.Workers))
	result, err := svc.MapSheet(ctx, "it", raw)
	if err != nil {
		return err
	}

	fmt.Printf("\nColumn mapping (%d of %d columns):\n", result.Mapping.Len(), len(raw.Header))
	for _, m := range result.Mapping.Matches {
		fmt.Printf("  %-22q -> %-28s %.2f (%s)\n", m.Header, m.Field, m.Confidence, m.Strategy)
	}
	for _, u := range result.Mapping.Unmatched {
		fmt.Printf("  %-22q -> unmatched\n", u.Header)
	}

	exact := 0
	for i, exp := range truth {
		if i < len(result.Records) && matchesTruth(result.Records[i], exp) {
			exact++
		}
	}

	fmt.Printf("\nRecords: %d (%d blank rows ignored)\n", len(result.Records), result.SkippedBlankRows)
	fmt.Printf("Sheet confidence: %.2f\n", result.Confidence)
	fmt.Printf("Records matching the generated truth: %d/%d\n", exact, len(truth))
	return nil
}

func matchesTruth(rec mapping.MappedRecord, exp testkit.ExpectedRecord) bool {
	return rec.String("type") == exp.Type &&
		rec.String("marque") == exp.Marque &&
		rec.String("modele") == exp.Modele &&
		rec.String("serial_number") == exp.SerialNumber &&
		rec.String("proprietaire") == exp.Proprietaire &&
		rec.String("departement") == exp.Departement &&
		rec.String("date_acquisition") == exp.DateAcquisition &&
		rec.Values["est_premiere_main"] == exp.EstPremiereMain
}

func previewFile(ctx context.Context, c *container.Container, path, profile string) (*mapping.SheetResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	svc := app.NewImportService(c.Engines, c.Readers, nil, nil, app.WithWorkers(c.Config.Import.Workers))
	return svc.Preview(ctx, app.ImportRequest{
		FileName: filepath.Base(path),
		Content:  f,
		Profile:  profile,
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
