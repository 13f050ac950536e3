package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/amirphl/docflow/app/dto"
	"github.com/amirphl/docflow/config"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command of the docflow binary
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "docflow",
		Short: "Document and financial workflow engine",
		Long: `Quotes, invoices and credit notes with tracked views, electronic
signatures, reminders and KPI reports, served over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// loadConfig loads the configuration and points the standard logger at the configured output.
// Every log consumer must write through the returned writer.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, io.Writer, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	out := cmd.ErrOrStderr()
	if !opts.Verbose {
		out = cfg.Logging.LogWriter()
	}
	log.SetOutput(out)
	return cfg, out, nil
}

// NewServeCommand creates the serve command
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, public links and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logWriter, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return err
			}
			return runServer(cfg, logWriter)
		},
	}
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return err
			}
			dbCfg := cfg.Database
			dbCfg.AutoMigrate = false
			db, err := initializeDatabase(dbCfg)
			if err != nil {
				return err
			}
			if err := repository.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables\n", len(repository.Models()))
			return nil
		},
	}
}

type tokenOutput struct {
	OperatorID   uint   `json:"operator_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewTokenCommand creates the token command
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var operatorID uint

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access and refresh token pair for an operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if operatorID == 0 {
				return fmt.Errorf("--operator-id is required")
			}
			cfg, _, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return err
			}
			tokenService, err := initializeTokenService(cfg.JWT)
			if err != nil {
				return err
			}
			access, refresh, err := tokenService.GenerateTokens(operatorID)
			if err != nil {
				return fmt.Errorf("failed to generate tokens: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tokenOutput{OperatorID: operatorID, AccessToken: access, RefreshToken: refresh})
		},
	}

	cmd.Flags().UintVar(&operatorID, "operator-id", 0, "operator the tokens are issued for")
	return cmd
}

type exportOptions struct {
	format   string
	docType  string
	status   string
	clientID uint
	dateFrom string
	dateTo   string
	outDir   string
}

func (o exportOptions) request() *dto.DocumentReportRequest {
	req := &dto.DocumentReportRequest{Format: o.format}
	if o.docType != "" {
		req.Type = &o.docType
	}
	if o.status != "" {
		req.Status = &o.status
	}
	if o.clientID != 0 {
		req.ClientID = &o.clientID
	}
	if o.dateFrom != "" {
		req.DateFrom = &o.dateFrom
	}
	if o.dateTo != "" {
		req.DateTo = &o.dateTo
	}
	return req
}

// NewExportCommand creates the export command
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the document table to a CSV or XLSX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return err
			}
			db, err := initializeDatabase(cfg.Database)
			if err != nil {
				return err
			}

			f := initializeFlows(cfg, db, nil, utils.SystemClock{})

			ctx, cancel := context.WithTimeout(cmd.Context(), utils.ExportRequestTimeout)
			defer cancel()

			file, err := f.reports.ExportDocuments(ctx, opts.request())
			if err != nil {
				return err
			}

			path := filepath.Join(opts.outDir, file.FileName)
			if err := os.WriteFile(path, file.Content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes) at %s\n", path, len(file.Content), utils.UTCNow().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "csv", "output format (csv|xlsx)")
	cmd.Flags().StringVar(&opts.docType, "type", "", "document type filter (quote|invoice|credit_note)")
	cmd.Flags().StringVar(&opts.status, "status", "", "document status filter")
	cmd.Flags().UintVar(&opts.clientID, "client-id", 0, "client filter")
	cmd.Flags().StringVar(&opts.dateFrom, "from", "", "first issue day, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.dateTo, "to", "", "last issue day (inclusive), YYYY-MM-DD")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")

	return cmd
}
