package users

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voip8pbx/ShieldHire-sub000/cmd/shieldapi/cmd/cmdutil"
	"github.com/voip8pbx/ShieldHire-sub000/internal/config"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

var setRoleCmd = &cobra.Command{
	Use:   "set-role",
	Short: "Overwrite the stored role of a principal",
	Long: `Overwrites the stored role with USER or ADMIN. BOUNCER and GUNMAN are
derived from the staff profile and are set with 'profiles set'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		role, err := parseAssignableRole(roleFlag)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		store, err := cmdutil.OpenStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		p, err := store.Principals.GetByEmail(ctx, identity.NormalizeEmail(emailFlag))
		if err != nil {
			return fmt.Errorf("failed to find principal: %w", err)
		}
		if err := store.Principals.UpdateRole(ctx, p.ID, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		fmt.Printf("Role of %s changed from %s to %s\n", p.Email, p.Role, role)
		return nil
	},
}
