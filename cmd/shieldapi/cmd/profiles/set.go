package profiles

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voip8pbx/ShieldHire-sub000/cmd/shieldapi/cmd/cmdutil"
	"github.com/voip8pbx/ShieldHire-sub000/internal/config"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

var (
	emailFlag string
	armedFlag bool
	stateFlag string
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace the staff profile of a principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		state := models.VerificationState(strings.ToUpper(stateFlag))
		if !state.Valid() {
			return fmt.Errorf("invalid verification state %q", stateFlag)
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

		now := time.Now().UTC()
		profile := &models.StaffProfile{
			PrincipalID:       p.ID,
			IsArmedSpecialist: armedFlag,
			VerificationState: state,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := store.Profiles.Upsert(ctx, profile); err != nil {
			return fmt.Errorf("failed to store profile: %w", err)
		}

		role := identity.Reconcile(p.Role, profile)
		if role != p.Role {
			if err := store.Principals.UpdateRole(ctx, p.ID, role); err != nil {
				return fmt.Errorf("profile stored but role update failed: %w", err)
			}
		}

		fmt.Printf("Profile of %s stored (armed=%t, state=%s); role is %s\n", p.Email, armedFlag, state, role)
		return nil
	},
}
