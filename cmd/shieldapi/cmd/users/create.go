package users

import (
	"bufio"
	"errors"
	"fmt"
	"net/mail"
	"os"

	"github.com/spf13/cobra"

	"github.com/voip8pbx/ShieldHire-sub000/cmd/shieldapi/cmd/cmdutil"
	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
	"github.com/voip8pbx/ShieldHire-sub000/internal/config"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

var (
	emailFlag    string
	nameFlag     string
	passwordFlag string
	roleFlag     string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a password principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		role, err := parseAssignableRole(roleFlag)
		if err != nil {
			return err
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		hash, err := auth.HashPassword(password)
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

		email := identity.NormalizeEmail(emailFlag)
		p := &models.Principal{
			ID:           bunx.NewUUIDv7(),
			Email:        email,
			DisplayName:  identity.DisplayNameOrLocalPart(nameFlag, email),
			Role:         role,
			PasswordHash: &hash,
		}
		p.SetSlot(models.SlotLocal, p.ID)

		if err := store.Principals.InsertIfAbsent(cmd.Context(), p); err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				return fmt.Errorf("principal with email %q already exists", email)
			}
			return fmt.Errorf("failed to create principal: %w", err)
		}

		fmt.Println("Principal created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("ID: %s\n", p.ID)
		fmt.Printf("Email: %s\n", p.Email)
		fmt.Printf("Display name: %s\n", p.DisplayName)
		fmt.Printf("Role: %s\n", p.Role)
		fmt.Println("----------------------------------------")
		return nil
	},
}
