package main

import (
	"errors"
	"fmt"

	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	linkUser string
	linkIDs  []string
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link entities to a marketing or company user",
	Long: `Adds ids to a user's linked entities. A marketing user links pharmacy
users; a company user links marketing users. Every id must be an existing
user of that role. Ids already linked are left as they are.`,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkUser, "user", "", "marketing or company user id")
	linkCmd.Flags().StringSliceVar(&linkIDs, "linked", nil, "id to link: pharmacy ids for marketing, marketing ids for company (repeatable)")
	_ = linkCmd.MarkFlagRequired("user")
	_ = linkCmd.MarkFlagRequired("linked")
	rootCmd.AddCommand(linkCmd)
}

// parseIDs parses hex ObjectIDs, naming flag in the error.
func parseIDs(flag string, values []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, s := range values {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runLink(cmd *cobra.Command, args []string) error {
	userID, err := primitive.ObjectIDFromHex(linkUser)
	if err != nil {
		return fmt.Errorf("invalid --user %q: %w", linkUser, err)
	}
	ids, err := parseIDs("linked", linkIDs)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	_, deps, closeDB, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	wctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), logger, "link")
	defer cancel()

	users := userstore.New(deps.MongoDatabase)
	if err := users.Link(wctx, userID, ids...); err != nil {
		switch {
		case errors.Is(err, userstore.ErrNotFound):
			return fmt.Errorf("no marketing or company user with id %s", userID.Hex())
		case errors.Is(err, userstore.ErrInvalidLink):
			return err
		}
		return fmt.Errorf("linking: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Linked %d ids to %s\n", len(ids), userID.Hex())
	return nil
}
