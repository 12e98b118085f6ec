package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abx-learn/backend/internal/bookmarks"
	"github.com/abx-learn/backend/internal/catalog"
	"github.com/abx-learn/backend/internal/database"
	"github.com/abx-learn/backend/internal/kvstore"
	"github.com/abx-learn/backend/internal/models"
	"github.com/abx-learn/backend/internal/quiz"
)

// withStore opens the configured kv backend for the duration of fn.
func withStore(ctx context.Context, fn func(kv kvstore.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, kv, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()
	if db != nil {
		defer db.Close()
	}
	return fn(kv)
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending postgres migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return err
		}
		version, dirty, ok, err := database.Version(db)
		if err != nil {
			return err
		}
		if !ok {
			printWarning("no migrations applied")
			return nil
		}
		printSuccess("schema at version %d", version)
		if dirty {
			printWarning("schema is marked dirty")
		}
		return nil
	},
}

// --- bookmarks ---

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "Export or import a learner's bookmarks",
}

var bookmarksExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the bookmark export document to stdout or --output",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		output, _ := cmd.Flags().GetString("output")

		return withStore(cmd.Context(), func(kv kvstore.Store) error {
			store := bookmarks.NewStore(kvstore.Prefixed(kv, kvstore.UserPrefix(userID)), cfg.KV.BookmarkKey)
			data, err := store.Export()
			if err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			printSuccess("exported %d bookmarks to %s", len(store.All()), output)
			return nil
		})
	},
}

var bookmarksImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bookmark export document",
	Long: `Import a bookmark export document.

By default imported bookmarks are merged with the existing ones and names
already present are skipped. --replace discards the existing collection.

Examples:
  abxlearn bookmarks import ./bookmarks.json
  abxlearn bookmarks import ./bookmarks.json --replace --user 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		replace, _ := cmd.Flags().GetBool("replace")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading import: %w", err)
		}

		return withStore(cmd.Context(), func(kv kvstore.Store) error {
			store := bookmarks.NewStore(kvstore.Prefixed(kv, kvstore.UserPrefix(userID)), cfg.KV.BookmarkKey)
			result := store.Import(data, !replace)
			if !result.Success {
				return fmt.Errorf("%s: %s", result.Message, result.Error)
			}
			printSuccess("%s", result.Message)
			return nil
		})
	},
}

// --- quiz ---

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Inspect quiz history",
}

var quizStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a learner's quiz statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")

		return withStore(cmd.Context(), func(kv kvstore.Store) error {
			tracker := quiz.NewTracker(kvstore.Prefixed(kv, kvstore.UserPrefix(userID)), cfg.KV.HistoryKey)
			return printJSON(cmd.OutOrStdout(), tracker.Stats())
		})
	},
}

// --- catalog ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Work with the pathogen catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a catalog file (default: the configured catalog)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Catalog.Path
		if len(args) == 1 {
			path = args[0]
		}

		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}

		source := path
		if source == "" {
			source = "built-in seed"
		}
		printStatus("Catalog", "%s", source)
		printStatus("Pathogens", "%d", len(cat.Pathogens()))
		printStatus("Conditions", "%d", len(cat.Conditions()))

		if missing := cat.UnknownConditions(); len(missing) > 0 {
			for _, id := range missing {
				printWarning("undefined condition %q", id)
			}
			return errors.New("catalog references undefined conditions")
		}
		printSuccess("catalog is valid")
		return nil
	},
}

func init() {
	bookmarksCmd.PersistentFlags().Int64("user", models.LocalUserID, "learner id")
	bookmarksExportCmd.Flags().String("output", "", "file to write instead of stdout")
	bookmarksImportCmd.Flags().Bool("replace", false, "replace existing bookmarks instead of merging")
	bookmarksCmd.AddCommand(bookmarksExportCmd)
	bookmarksCmd.AddCommand(bookmarksImportCmd)

	quizStatsCmd.Flags().Int64("user", models.LocalUserID, "learner id")
	quizCmd.AddCommand(quizStatsCmd)

	catalogCmd.AddCommand(catalogValidateCmd)
}
