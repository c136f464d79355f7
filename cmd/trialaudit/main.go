package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/clinmatch/trialaudit/internal/config"
	"github.com/clinmatch/trialaudit/internal/database"
	"github.com/clinmatch/trialaudit/internal/export"
	"github.com/clinmatch/trialaudit/internal/records"
	"github.com/clinmatch/trialaudit/internal/review"
	"github.com/clinmatch/trialaudit/internal/server"
	"github.com/clinmatch/trialaudit/internal/source"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "trialaudit",
	Short:   "Human review of machine-generated trial eligibility grades",
	Long:    "trialaudit loads a CSV of trial/patient grading records and runs a local review workflow: step through cases, record human grades and comments, and export the accumulated judgments.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reviewsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("trialaudit", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/trialaudit/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point source.csv at your grading file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show review progress and agreement rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reviews := review.NewStore(db)
		if err := reviews.Load(); err != nil {
			log.Printf("loading reviews: %v", err)
		}
		drafts := review.NewDraftCache(db)
		if err := drafts.Load(); err != nil {
			log.Printf("loading drafts: %v", err)
		}

		st := reviews.Stats()
		fmt.Println("Reviews:")
		fmt.Printf("  Finalized: %d\n", st.Total)
		fmt.Printf("  Agreements: %d\n", st.Agreements)
		fmt.Printf("  Agreement rate: %s\n", formatRate(st.AgreementRate))
		fmt.Println("\nDrafts:")
		fmt.Printf("  In progress: %d\n", drafts.Len())
		return nil
	},
}

// --- inspect command ---

var inspectCmd = &cobra.Command{
	Use:   "inspect [file-or-url]",
	Short: "Parse a grading CSV and summarize its cases",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location := cfg.Source.CSV
		if len(args) > 0 {
			location = args[0]
		}

		text, err := source.Fetch(location)
		if err != nil {
			return err
		}

		recs := records.Parse(text)
		ix := records.BuildCaseIndex(recs)

		fmt.Printf("Records: %d\n", len(recs))
		fmt.Printf("Cases: %d\n\n", ix.Len())
		for i, key := range ix.Keys() {
			g, _ := ix.Group(key)
			fmt.Printf("  [%d] %s (%d trials)\n", i+1, truncate(g.Display, 70), len(g.Records))
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the grading CSV and start the local review server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reviews := review.NewStore(db)
		if err := reviews.Load(); err != nil {
			log.Printf("loading reviews: %v", err)
		}
		drafts := review.NewDraftCache(db)
		if err := drafts.Load(); err != nil {
			log.Printf("loading drafts: %v", err)
		}

		// One-shot load gating the session; endpoints report loading
		// until it resolves and a terminal error if it fails.
		session := server.NewSession()
		go func() {
			text, err := source.Fetch(cfg.Source.CSV)
			if err != nil {
				log.Printf("loading grading CSV: %v", err)
				session.Resolve(nil, err)
				return
			}
			recs := records.Parse(text)
			log.Printf("loaded %d records from %s", len(recs), cfg.Source.CSV)
			session.Resolve(recs, nil)
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(session, reviews, drafts, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- export command ---

var exportOut string

var exportCmd = &cobra.Command{
	Use:       "export simple|full",
	Short:     "Export finalized reviews as CSV",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"simple", "full"},
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reviews := review.NewStore(db)
		if err := reviews.Load(); err != nil {
			log.Printf("loading reviews: %v", err)
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportOut, err)
			}
			defer f.Close()
			out = f
		}

		switch args[0] {
		case "simple":
			err = export.WriteSimple(out, reviews.All())
		case "full":
			// The full export needs the parsed records so trial fields
			// come from the source CSV, not the review snapshots.
			text, ferr := source.Fetch(cfg.Source.CSV)
			if ferr != nil {
				return ferr
			}
			ix := records.BuildCaseIndex(records.Parse(text))
			err = export.WriteFull(out, reviews.All(), ix)
		default:
			return fmt.Errorf("unknown export format: %s", args[0])
		}
		if err != nil {
			return err
		}

		if exportOut != "" {
			fmt.Printf("Wrote %d reviews to %s\n", reviews.Len(), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
}

// --- reviews command ---

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Inspect or undo finalized reviews",
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List finalized reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reviews := review.NewStore(db)
		if err := reviews.Load(); err != nil {
			log.Printf("loading reviews: %v", err)
		}

		all := reviews.All()
		if len(all) == 0 {
			fmt.Println("No finalized reviews yet.")
			return nil
		}

		for _, r := range all {
			marker := "="
			if r.ReviewStatus == review.StatusNeedsReview {
				marker = "!"
			}
			fmt.Printf("  %s %s  human=%s model=%s  %s\n",
				marker, r.Record.TrialID, r.HumanGrade, r.Record.ModelGrade,
				r.ReviewedAt.Format("2006-01-02 15:04"))
			fmt.Printf("      %s\n", truncate(r.Record.CaseText, 70))
			if r.Comments != "" {
				fmt.Printf("      note: %s\n", truncate(r.Comments, 70))
			}
		}
		return nil
	},
}

var (
	undoTrialID  string
	undoCaseText string
)

var reviewsUndoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo the review for one (trial, case) identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reviews := review.NewStore(db)
		if err := reviews.Load(); err != nil {
			log.Printf("loading reviews: %v", err)
		}

		if reviews.Remove(undoTrialID, undoCaseText) {
			fmt.Printf("Removed review for %s\n", undoTrialID)
		} else {
			fmt.Printf("No review found for %s\n", undoTrialID)
		}
		return nil
	},
}

func init() {
	reviewsUndoCmd.Flags().StringVar(&undoTrialID, "trial-id", "", "Trial identifier")
	reviewsUndoCmd.Flags().StringVar(&undoCaseText, "case", "", "Case narrative text")
	reviewsUndoCmd.MarkFlagRequired("trial-id")
	reviewsUndoCmd.MarkFlagRequired("case")

	reviewsCmd.AddCommand(reviewsListCmd)
	reviewsCmd.AddCommand(reviewsUndoCmd)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "trialaudit.db")
	return database.Open(dbPath)
}

func formatRate(rate float64) string {
	if math.IsNaN(rate) {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", rate*100)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
