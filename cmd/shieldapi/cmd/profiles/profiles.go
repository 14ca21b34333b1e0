package profiles

import (
	"github.com/spf13/cobra"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

// ProfilesCmd is the parent command for staff profile operations
var ProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage staff profiles",
}

func init() {
	setCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the principal")
	setCmd.Flags().BoolVar(&armedFlag, "armed", false, "Mark the principal as an armed specialist")
	setCmd.Flags().StringVar(&stateFlag, "state", string(models.VerificationPending), "Verification state: PENDING, APPROVED or REJECTED")

	ProfilesCmd.AddCommand(setCmd)
}
