package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exam-portal/internal/catalog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/recordstore"
	"github.com/stemsi/exam-portal/internal/service"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examctl",
		Short:        "Operator tools for the exam portal",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("store", "", "Record store base URL (defaults to RECORD_STORE_URL)")
	root.AddCommand(seedCmd(), catalogCmd(), hashPasswordCmd())
	return root
}

// storeClient builds the record store client from --store or the environment.
func storeClient(cmd *cobra.Command) (*recordstore.Client, *config.Config, zerolog.Logger, error) {
	cfg := config.Load()
	// CLI output goes to stdout, so logs go to stderr.
	log := logger.New(os.Stderr, cfg.LogLevel, "pretty")

	url, _ := cmd.Flags().GetString("store")
	if url == "" {
		url = cfg.RecordStoreURL
	}
	if url == "" {
		return nil, nil, log, errors.New("record store URL not set: use --store or RECORD_STORE_URL")
	}
	return recordstore.New(url, cfg.RecordStoreAuth, cfg.RecordStoreTimeout, log), cfg, log, nil
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a YAML fixture to the record store",
		Long: "Each top-level key of the fixture is a store path; its value " +
			"overwrites that path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, log, err := storeClient(cmd)
			if err != nil {
				return err
			}

			path, _ := cmd.Flags().GetString("file")
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			fixture, err := recordstore.LoadFixture(f)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			failed := recordstore.Seed(ctx, client, fixture)
			log.Info().
				Int("collections", len(fixture)).
				Int("failed", len(failed)).
				Msg("Seed finished")
			if len(failed) > 0 {
				return fmt.Errorf("failed to write: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "YAML fixture file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load the catalog from the record store and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, log, err := storeClient(cmd)
			if err != nil {
				return err
			}

			cat := catalog.Load(cmd.Context(), client, cfg.DefaultExamMinutes, log)

			var out any = cat.Snapshot()
			if stats, _ := cmd.Flags().GetBool("stats"); stats {
				out = cat.Stats()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().Bool("stats", false, "Print only the counts")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash of a password for OPERATOR_PASSWORD_HASH",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// readPassword reads without echo from a terminal, or one line from piped
// stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
