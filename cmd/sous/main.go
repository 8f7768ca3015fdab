package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sous-system/config"
	etl "sous-system/internal/services/etl/handler"
	"sous-system/internal/utils"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:          "sous",
		Short:        "Restaurant operations backend",
		Long:         `Sous ingests point-of-sale data, keeps an analytical snapshot for reporting and answers operator questions about stock and sales.`,
		SilenceUsage: true,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingest and analytical sync, then exit",
		RunE:  runIngest,
	}
	varianceCmd = &cobra.Command{
		Use:   "variance",
		Short: "Print theoretical ingredient usage from the current snapshot",
		Long:  `Runs an ingest first when --sync is set, since an in-memory snapshot starts empty.`,
		RunE:  runVariance,
	}
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for POST /api/ingest",
		RunE:  runToken,
	}

	cfg config.Config

	varianceSync bool
	varianceXLSX string
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg = config.LoadConfig()
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(varianceCmd)
	varianceCmd.Flags().BoolVar(&varianceSync, "sync", false, "Run an ingest before computing variance.")
	varianceCmd.Flags().StringVar(&varianceXLSX, "xlsx", "", "Write the report to this .xlsx path instead of stdout.")
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Token subject.")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	router, err := newRouter(a)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		config.GetLogger().WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	config.GetLogger().Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.etl.SyncData(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func runVariance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if varianceSync {
		if _, err := a.etl.SyncData(ctx); err != nil {
			return err
		}
	}

	report, err := a.etl.ComputeVariance(ctx)
	if err != nil {
		return err
	}

	if varianceXLSX == "" {
		return printJSON(cmd, report)
	}

	f, err := etl.ExportVarianceXLSX(report)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(varianceXLSX); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d lines to %s\n", len(report.Lines), varianceXLSX)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is not set")
	}
	token, exp, err := utils.GenerateToken([]byte(cfg.Auth.JWTSecret), tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
