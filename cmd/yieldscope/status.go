package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/config"
	"yieldScope/internal/model"
	"yieldScope/internal/storage"
	"yieldScope/internal/storage/postgres"
)

var errNoJournal = errors.New("no journal configured: set --pg-dsn or --journal")

func newExecutionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution <id>",
		Short: "Show the latest journaled state of an execution",
		Args:  cobra.ExactArgs(1),
		RunE:  runExecution,
	}
	flags := cmd.Flags()
	flags.String("journal", "", "JSONL journal path")
	flags.String("pg-dsn", "", "Postgres DSN for the journal")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runExecution(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCommon(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := lookupExecution(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	logger.Info("execution loaded",
		zap.String("execution_id", rec.ID),
		zap.String("state", string(rec.State)),
	)
	return printJSON(os.Stdout, rec)
}

// lookupExecution prefers Postgres over the JSONL journal when both are configured.
func lookupExecution(ctx context.Context, cfg config.Common, id string) (*model.ExecutionRecord, error) {
	var lookup storage.ExecutionLookup
	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		lookup = store
	case cfg.Journal != "":
		lookup = storage.NewJsonlJournal(cfg.Journal)
	default:
		return nil, errNoJournal
	}

	rec, found, err := lookup.LoadExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("execution %s not found", id)
	}
	return rec, nil
}
