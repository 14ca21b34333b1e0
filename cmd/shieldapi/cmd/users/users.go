package users

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

// UsersCmd is the parent command for principal management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage principals",
	Long:  `Commands for managing password principals and roles directly from the server.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the principal")
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Display name (defaults to the email local part)")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password (use --stdin to avoid shell history)")
	createCmd.Flags().StringVar(&roleFlag, "role", "USER", "Initial role: USER or ADMIN")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	setRoleCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the principal")
	setRoleCmd.Flags().StringVar(&roleFlag, "role", "", "Role to store: USER or ADMIN")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(setRoleCmd)
}

// parseAssignableRole accepts only the roles that may be stored without a
// staff profile. Staff roles are derived from the profile.
func parseAssignableRole(s string) (models.Role, error) {
	role, ok := models.ParseRole(strings.ToUpper(strings.TrimSpace(s)))
	if !ok {
		return "", fmt.Errorf("invalid role %q (expected USER or ADMIN)", s)
	}
	if role.IsStaff() {
		return "", fmt.Errorf("role %s is derived from the staff profile; use 'profiles set' instead", role)
	}
	return role, nil
}
