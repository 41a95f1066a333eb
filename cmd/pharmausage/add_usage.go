package main

import (
	"fmt"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/bootstrap"
	usagestore "github.com/dalemusser/pharmausage/internal/app/store/usage"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dalemusser/pharmausage/internal/app/system/usage"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	addPharmacy  string
	addDate      string
	addCount     int64
	addIncrement bool
)

var addUsageCmd = &cobra.Command{
	Use:   "add-usage",
	Short: "Write a daily usage count for a pharmacy",
	Long: `Sets (or with --increment, adds to) the usage count of one pharmacy
for one day. Intended for seeding development data.`,
	RunE: runAddUsage,
}

func init() {
	addUsageCmd.Flags().StringVar(&addPharmacy, "pharmacy", "", "pharmacy user id")
	addUsageCmd.Flags().StringVar(&addDate, "date", "", "day as YYYY-MM-DD (default today in usage_timezone)")
	addUsageCmd.Flags().Int64Var(&addCount, "count", 0, "usage count")
	addUsageCmd.Flags().BoolVar(&addIncrement, "increment", false, "add --count to the stored value instead of replacing it")
	_ = addUsageCmd.MarkFlagRequired("pharmacy")
	rootCmd.AddCommand(addUsageCmd)
}

func runAddUsage(cmd *cobra.Command, args []string) error {
	pharmacyID, err := primitive.ObjectIDFromHex(addPharmacy)
	if err != nil {
		return fmt.Errorf("invalid --pharmacy %q: %w", addPharmacy, err)
	}
	if addCount < 0 {
		return fmt.Errorf("--count must be >= 0")
	}

	ctx := cmd.Context()
	cfg, deps, closeDB, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	date := addDate
	if date == "" {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		date = usage.Today(time.Now(), loc)
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
	}

	wctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "add-usage")
	defer cancel()

	u, err := userstore.New(deps.MongoDatabase).GetByID(wctx, pharmacyID)
	if err != nil {
		return fmt.Errorf("looking up pharmacy: %w", err)
	}
	if u.Role != models.RolePharmacy {
		return fmt.Errorf("user %s has role %q, not pharmacy", pharmacyID.Hex(), u.Role)
	}

	store := usagestore.New(deps.MongoDatabase)
	if addIncrement {
		err = store.Increment(wctx, pharmacyID, date, addCount)
	} else {
		err = store.Set(wctx, pharmacyID, date, addCount)
	}
	if err != nil {
		return fmt.Errorf("writing usage: %w", err)
	}

	bootstrap.NewAuditLogger(cfg, deps, logger).UsageSet(ctx, pharmacyID, date, addCount)

	verb := "Set"
	if addIncrement {
		verb = "Added"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s uses for %s on %s\n", verb, humanize.Comma(addCount), u.FullName, date)
	return nil
}
