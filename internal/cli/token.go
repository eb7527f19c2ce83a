package cli

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"pagebuilder/internal/config"
	"pagebuilder/internal/middleware"
	"pagebuilder/internal/models"
	"pagebuilder/internal/store"
)

var roles = []models.Role{models.RoleAdmin, models.RoleEditor, models.RoleMember}

func checkRole(role string) error {
	if !slices.Contains(roles, models.Role(role)) {
		return fmt.Errorf("--role must be one of %v, got %q", roles, role)
	}
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		userID int64
		email  string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		Long: `Token signs a bearer token with JWT_SECRET.

With --user the token is minted offline for the given id and --role. With
--email the user is looked up in the database and its stored role is used.`,
		Example: `  pbctl token --user 1 --role editor --ttl 2h
  pbctl token --email editor@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			switch {
			case email != "":
				db, err := openDB(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				u, err := store.NewUserStore(db).FindByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}
				if u == nil {
					return fmt.Errorf("no user with email %q", email)
				}
				userID, role = u.ID, string(u.Role)
			case userID <= 0:
				return errors.New("--user must be a positive user id, or use --email")
			}
			if err := checkRole(role); err != nil {
				return err
			}

			if ttl == 0 {
				ttl = cfg.TokenTTL
			}
			tok, err := middleware.IssueToken([]byte(cfg.JWTSecret), userID, models.Role(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&email, "email", "", "look the user up by email")
	cmd.Flags().StringVar(&role, "role", string(models.RoleMember), "admin, editor or member (ignored with --email)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TTL)")
	cmd.MarkFlagsMutuallyExclusive("user", "email")
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var role string
	add := &cobra.Command{
		Use:     "add NAME EMAIL",
		Short:   "Create a user",
		Example: `  pbctl user add "Ada Editor" ada@example.com --role editor`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRole(role); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := store.NewUserStore(db).Create(cmd.Context(), args[0], args[1], models.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
	add.Flags().StringVar(&role, "role", string(models.RoleMember), "admin, editor or member")

	cmd.AddCommand(add)
	return cmd
}
