package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/pharmausage/internal/app/bootstrap"
	loginstore "github.com/dalemusser/pharmausage/internal/app/store/logins"
	"github.com/dalemusser/pharmausage/internal/app/store/queries/usagequeries"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/apperr"
	"github.com/dalemusser/pharmausage/internal/app/system/session"
	"github.com/dalemusser/pharmausage/internal/app/system/signin"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dalemusser/pharmausage/internal/app/system/usage"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	summaryEmail    string
	summaryPassword string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Sign in and print the role home",
	Long: `Signs in with --email and --password, resolves the user's role and
prints the same usage summary the dashboard would show.`,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryEmail, "email", "", "account email")
	summaryCmd.Flags().StringVar(&summaryPassword, "password", "", "account password")
	_ = summaryCmd.MarkFlagRequired("email")
	_ = summaryCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, deps, closeDB, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	db := deps.MongoDatabase

	svc := signin.New(userstore.New(db), loginstore.New(db), bootstrap.NewAuditLogger(cfg, deps, logger), logger)
	u, err := svc.SignIn(ctx, nil, signin.Credentials{Email: summaryEmail, Password: summaryPassword})
	if err != nil {
		return errors.New(apperr.Message(err))
	}

	res := session.NewResolver(userstore.NewFetcher(db), logger)
	s := res.Resolve(ctx, &session.Identity{UserID: u.ID.Hex(), Email: u.Email})
	if !s.HasRole() {
		return fmt.Errorf("signed in as %s but no role could be resolved (%s)", u.Email, s.State())
	}

	asm, err := bootstrap.NewAssembler(cfg, deps, logger)
	if err != nil {
		return err
	}

	vctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), logger, "summary")
	defer cancel()

	out := cmd.OutOrStdout()
	switch s.Role() {
	case models.RolePharmacy:
		view, err := asm.PharmacyHome(vctx, s.UserID())
		if err != nil {
			return errors.New(apperr.Message(err))
		}
		fmt.Fprintf(out, "Pharmacy %s (today %s)\n", view.Name, view.Today)
		printEntries(out, []usagequeries.Entry{view.Entry}, nil)
	case models.RoleMarketing:
		view, err := asm.MarketingHome(vctx, s.UserID())
		if err != nil {
			return errors.New(apperr.Message(err))
		}
		fmt.Fprintf(out, "%s: %d linked pharmacies (today %s)\n", view.Name, len(view.Pharmacies), view.Today)
		printEntries(out, view.Pharmacies, &view.Combined)
	case models.RoleCompany:
		view, err := asm.CompanyHome(vctx)
		if err != nil {
			return errors.New(apperr.Message(err))
		}
		fmt.Fprintf(out, "Company overview (today %s)\n", view.Today)
		fmt.Fprintln(out, strings.Repeat("-", 40))
		for _, m := range view.Marketers {
			fmt.Fprintf(out, "%-24s  %s\n", m.Name, m.ID.Hex())
		}
		fmt.Fprintln(out, strings.Repeat("-", 40))
		fmt.Fprintf(out, "Grand total: %s across %d marketing users\n", humanize.Comma(view.GrandTotal), len(view.Marketers))
	default:
		return fmt.Errorf("role %q has no home view", s.Role())
	}
	return nil
}

// printEntries writes one row per entry and an optional combined row.
func printEntries(w io.Writer, entries []usagequeries.Entry, combined *usage.Summary) {
	rule := strings.Repeat("-", 62)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-28s  %10s  %10s  %10s\n", "Pharmacy", "Today", "Month", "Total")
	fmt.Fprintln(w, rule)
	for _, e := range entries {
		printRow(w, e.Name, e.Summary)
	}
	if combined != nil {
		fmt.Fprintln(w, rule)
		printRow(w, "Combined", *combined)
	}
}

func printRow(w io.Writer, name string, s usage.Summary) {
	fmt.Fprintf(w, "%-28s  %10s  %10s  %10s\n", name,
		humanize.Comma(s.Daily), humanize.Comma(s.Monthly), humanize.Comma(s.Total))
}
