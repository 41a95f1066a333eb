package main

import (
	"fmt"

	"github.com/dalemusser/pharmausage/internal/app/bootstrap"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/spf13/cobra"
)

var (
	seedName     string
	seedEmail    string
	seedRole     string
	seedPassword string
	seedLinks    []string
)

var seedUserCmd = &cobra.Command{
	Use:   "seed-user",
	Short: "Create a user account",
	Long: `Creates a pharmacy, marketing or company user with a bcrypt-hashed
password. Marketing and company users may be linked to pharmacies with
repeated --link flags.`,
	Example: `  pharmausage seed-user --name "Main St Pharmacy" --email main@example.com --role pharmacy --password secret
  pharmausage seed-user --name Ana --email ana@example.com --role marketing --password secret --link 64f0...`,
	RunE: runSeedUser,
}

func init() {
	seedUserCmd.Flags().StringVar(&seedName, "name", "", "display name")
	seedUserCmd.Flags().StringVar(&seedEmail, "email", "", "login email")
	seedUserCmd.Flags().StringVar(&seedRole, "role", "", "pharmacy, marketing or company")
	seedUserCmd.Flags().StringVar(&seedPassword, "password", "", "initial password")
	seedUserCmd.Flags().StringSliceVar(&seedLinks, "link", nil, "linked pharmacy id (repeatable)")
	_ = seedUserCmd.MarkFlagRequired("email")
	_ = seedUserCmd.MarkFlagRequired("role")
	_ = seedUserCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(seedUserCmd)
}

func runSeedUser(cmd *cobra.Command, args []string) error {
	linked, err := parseIDs("link", seedLinks)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, deps, closeDB, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	wctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "seed-user")
	defer cancel()

	u, err := userstore.New(deps.MongoDatabase).Create(wctx, models.User{
		FullName:       seedName,
		Email:          seedEmail,
		Role:           seedRole,
		LinkedMachines: linked,
	}, seedPassword)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	bootstrap.NewAuditLogger(cfg, deps, logger).UserCreated(ctx, u.ID, u.Email, u.Role)

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s)", u.Role, u.Email, u.ID.Hex())
	if len(linked) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " linked to %d pharmacies", len(linked))
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
