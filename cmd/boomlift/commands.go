package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/boomlift-maintenance/internal/auth"
	"github.com/ukydev/boomlift-maintenance/internal/db"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/records"
	"github.com/ukydev/boomlift-maintenance/internal/report"
	"github.com/ukydev/boomlift-maintenance/internal/spreadsheet"
	"github.com/ukydev/boomlift-maintenance/internal/summary"
	"github.com/ukydev/boomlift-maintenance/internal/transport"
	"github.com/ukydev/boomlift-maintenance/internal/validation"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoWorkbook is returned when a command needs a workbook and none was given.
var ErrNoWorkbook = errors.New("no workbook: pass --file or --url, or set EXCEL_URL")

type sourceFlags struct {
	file  string
	sheet string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.file, "file", "", "read form responses from an Excel workbook")
	cmd.Flags().String("url", "", "download the workbook from a URL (default EXCEL_URL)")
	cmd.Flags().StringVar(&s.sheet, "sheet", "", "worksheet holding the responses (default Sheet1)")
}

func (c *cli) importCmd() *cobra.Command {
	var src sourceFlags
	var replace, dryRun bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import form responses from an Excel workbook into MongoDB",
		Long: `Import reads every response row, oldest first, and stores the rows that keep
each boom lift's hours and submission times in order. Rows that would break
the order are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.connect(ctx, !dryRun)
			if err != nil {
				return err
			}
			defer a.close()

			rows, rowErrs, err := c.readWorkbook(ctx, a, src)
			if err != nil {
				return err
			}

			var history []models.MaintenanceRecord
			var fwd transport.Forwarder
			switch {
			case dryRun:
				history, err = a.history(ctx)
			case replace:
				if err = a.records.DeleteAll(ctx); err == nil {
					log.Warn("Cleared stored records before import")
				}
				fwd = a.records
			default:
				history, err = a.history(ctx)
				fwd = a.records
			}
			if err != nil {
				return err
			}

			res, err := spreadsheet.Import(ctx, rows, validation.NewSubmitter(records.NewStore(history...), fwd))
			printImport(cmd.OutOrStdout(), res, rowErrs, dryRun)
			if err != nil {
				return fmt.Errorf("import stopped after %d records: %w", res.Imported, err)
			}
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&replace, "replace", false, "delete the stored records before importing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check the workbook without storing anything")
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	var src sourceFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the technician, site, boom lift and review period summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.connect(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			recs, err := c.loadRecords(ctx, cmd, a, src)
			if err != nil {
				return err
			}
			now := time.Now().In(a.loc)
			rep := summary.Build(recs, warnings.At(now), now)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			report.Write(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var src sourceFlags
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the records and summaries to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.connect(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			recs, err := c.loadRecords(ctx, cmd, a, src)
			if err != nil {
				return err
			}
			now := time.Now().In(a.loc)
			ev := warnings.At(now)
			data, err := spreadsheet.WriteReport(summary.Build(recs, ev, now), ev.Annotate(recs))
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("boomlift-report-%s.xlsx", now.Format(models.DateLayout))
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(recs), out)
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default boomlift-report-<date>.xlsx)")
	return cmd
}

func (c *cli) userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage technician accounts"}
	user.AddCommand(c.userAddCmd())
	return user
}

func (c *cli) userAddCmd() *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account, reading the password from stdin",
		Long: `Create an account of any role, including admin. The password is read from
the first line of stdin so it never appears in shell history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := c.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			svc, err := auth.NewService(c.cfg.JWTSecret, c.cfg.JWTExpiry)
			if err != nil {
				return err
			}
			req.Password = password
			if err := auth.ValidateAccount(req); err != nil {
				return err
			}

			a, err := c.connect(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()
			users := &db.MongoUserCollection{Collection: a.db.Collection(usersCollection)}
			if err := users.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("ensure user indexes: %w", err)
			}
			exists, err := users.AccountExists(ctx, req.Username, req.Email)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("username %s or email %s already exists", req.Username, req.Email)
			}

			hash, err := svc.HashPassword(password)
			if err != nil {
				return err
			}
			displayName := strings.TrimSpace(req.DisplayName)
			if displayName == "" {
				displayName = req.Username
			}
			err = users.InsertUser(ctx, models.User{
				ID:           primitive.NewObjectID(),
				Username:     req.Username,
				Email:        req.Email,
				PasswordHash: hash,
				Role:         req.Role,
				DisplayName:  displayName,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %s\n", req.Role, req.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "name shown on records (default username)")
	cmd.Flags().StringVar((*string)(&req.Role), "role", string(models.RoleInstaller), "admin, mechanic or installer")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// loadRecords returns the stored history, or the rows of a workbook when one
// is named on the command line or no database is configured.
func (c *cli) loadRecords(ctx context.Context, cmd *cobra.Command, a *app, src sourceFlags) ([]models.MaintenanceRecord, error) {
	if src.file == "" && !cmd.Flags().Changed("url") && a.records != nil {
		return a.history(ctx)
	}
	rows, rowErrs, err := c.readWorkbook(ctx, a, src)
	if err != nil {
		return nil, err
	}
	store := records.NewStore()
	res, err := spreadsheet.Import(ctx, rows, validation.NewSubmitter(store, nil))
	if err != nil {
		return nil, err
	}
	for _, re := range append(rowErrs, res.Rejected...) {
		log.WithError(re.Err).WithField("row", re.Row).Warn("Skipped workbook row")
	}
	return store.All(), nil
}

func (c *cli) readWorkbook(ctx context.Context, a *app, src sourceFlags) ([]spreadsheet.Row, []spreadsheet.RowError, error) {
	var data []byte
	var err error
	switch {
	case src.file != "":
		data, err = os.ReadFile(src.file)
	case c.cfg.ExcelURL != "":
		data, err = spreadsheet.Fetch(ctx, c.cfg.ExcelURL)
	default:
		return nil, nil, ErrNoWorkbook
	}
	if err != nil {
		return nil, nil, err
	}
	return spreadsheet.ReadWorkbook(bytes.NewReader(data), spreadsheet.Options{Sheet: src.sheet, Location: a.loc})
}

func printImport(w io.Writer, res spreadsheet.ImportResult, rowErrs []spreadsheet.RowError, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Checked"
	}
	fmt.Fprintf(w, "%s %d records\n", verb, res.Imported)
	for _, re := range append(rowErrs, res.Rejected...) {
		fmt.Fprintf(w, "  skipped %v\n", re)
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password must be given on stdin")
	}
	return line, nil
}
