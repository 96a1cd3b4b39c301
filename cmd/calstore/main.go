package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"calstore/internal/api"
	"calstore/internal/config"
	"calstore/internal/ics"
	"calstore/internal/store"
)

var dbPath string

func main() {
	// Default database location
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".calstore", "calendar.db")
	defaultConfig := filepath.Join(home, ".calstore", "config.yaml")

	rootCmd := &cobra.Command{
		Use:   "calstore",
		Short: "Personal calendar store with cross-source deduplication",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "database path")

	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(syncCmd(defaultConfig))
	rootCmd.AddCommand(ignoreSeriesCmd())
	rootCmd.AddCommand(ignoreEventCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// getStore opens the database for writing, creating it on first use
func getStore(logger *zap.Logger) (*store.Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.Open(dbPath, logger)
}

// openExistingStore opens the database for reading. The read path must
// never create an empty store behind the front end's back.
func openExistingStore(logger *zap.Logger) (*store.Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %s", dbPath)
	}
	return store.Open(dbPath, logger)
}

func eventsCmd() *cobra.Command {
	var daysAhead, daysBack int
	var source string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print upcoming events as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runEvents(daysAhead, daysBack, source); err != nil {
				// The front end parses stderr as a structured error.
				json.NewEncoder(os.Stderr).Encode(map[string]string{"error": err.Error()})
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&daysAhead, "days-ahead", 30, "days to look ahead (0-365)")
	cmd.Flags().IntVar(&daysBack, "days-back", 0, "days to look back (0-365)")
	cmd.Flags().StringVar(&source, "source", "", "restrict to one source")
	return cmd
}

func runEvents(daysAhead, daysBack int, source string) error {
	// Validate before any storage access.
	if daysAhead < 0 || daysAhead > 365 {
		return fmt.Errorf("days-ahead must be between 0 and 365")
	}
	if daysBack < 0 || daysBack > 365 {
		return fmt.Errorf("days-back must be between 0 and 365")
	}

	// The query surface shares stderr with the error contract, so no
	// logger here.
	s, err := openExistingStore(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	events, err := s.QueryEvents(daysBack, daysAhead, source)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(events)
}

func syncCmd(defaultConfig string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull all configured ICS feeds into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.DB != "" {
				dbPath = cfg.DB
			}

			s, err := getStore(logger)
			if err != nil {
				return err
			}
			defer s.Close()

			now := time.Now().UTC()
			horizon := ics.Horizon{
				Start: now.AddDate(0, 0, -cfg.DaysBack),
				End:   now.AddDate(0, 0, cfg.DaysAhead),
			}

			totalInserted, totalUpdated, failed := 0, 0, 0
			for _, src := range cfg.Sources {
				body, err := ics.Fetch(src.URL)
				if err != nil {
					logger.Warn("fetch feed", zap.String("source", src.Name), zap.Error(err))
					failed++
					continue
				}
				candidates, err := ics.Parse(src.Name, body, horizon, logger)
				if err != nil {
					logger.Warn("parse feed", zap.String("source", src.Name), zap.Error(err))
					failed++
					continue
				}
				inserted, updated, err := s.SaveAppointments(candidates, cfg.Rules(src.Name))
				if err != nil {
					// Partial batches still count; per-item failures
					// were already isolated and logged by the store.
					logger.Warn("save feed", zap.String("source", src.Name), zap.Error(err))
				}
				fmt.Printf("%s: %d inserted, %d updated\n", src.Name, inserted, updated)
				totalInserted += inserted
				totalUpdated += updated
			}

			fmt.Printf("Total: %d inserted, %d updated\n", totalInserted, totalUpdated)
			if failed > 0 {
				return fmt.Errorf("%d source(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", defaultConfig, "sync configuration path")
	return cmd
}

func ignoreSeriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore-series",
		Short: "Manage suppressed recurring series",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List suppressed series as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := s.ListIgnoredSeries()
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(list)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [base_id] [subject] [reason]",
		Short: "Suppress a recurring series",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			baseID := args[0]
			subject := argOr(args, 1, "")
			reason := argOr(args, 2, "User ignored")
			if err := s.AddIgnoredSeries(baseID, subject, reason); err != nil {
				return err
			}
			fmt.Printf("Added %s to ignored list\n", baseID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [base_id]",
		Short: "Lift a series suppression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.RemoveIgnoredSeries(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s from ignored list\n", args[0])
			return nil
		},
	})

	return cmd
}

func ignoreEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore-event",
		Short: "Manage suppressed single occurrences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List suppressed occurrences as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := s.ListIgnoredOccurrences()
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(list)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [event_id] [subject] [start_time] [reason]",
		Short: "Suppress one occurrence",
		Args:  cobra.RangeArgs(1, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			eventID := args[0]
			subject := argOr(args, 1, "")
			startTime := argOr(args, 2, "")
			reason := argOr(args, 3, "User ignored")
			if err := s.AddIgnoredOccurrence(eventID, subject, startTime, reason); err != nil {
				return err
			}
			fmt.Printf("Added %s to ignored list\n", eventID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove [event_id]",
		Short: "Lift an occurrence suppression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.RemoveIgnoredOccurrence(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s from ignored list\n", args[0])
			return nil
		},
	})

	return cmd
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove duplicate events left by earlier syncs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			s, err := openExistingStore(logger)
			if err != nil {
				return err
			}
			defer s.Close()

			removed, err := s.CleanupDuplicates()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d duplicate events\n", removed)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			s, err := getStore(logger)
			if err != nil {
				return err
			}
			// Note: don't defer s.Close() as server runs indefinitely

			server := api.New(s, addr, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}

func argOr(args []string, i int, fallback string) string {
	if i < len(args) {
		return args[i]
	}
	return fallback
}
