package command

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"libraryhub/internal/app"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

// userCreateCmd is how librarian and admin accounts come into existence;
// the public register endpoint only creates members.
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account with a given role",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in service.RegisterInput
		in.Username, _ = cmd.Flags().GetString("username")
		in.Email, _ = cmd.Flags().GetString("email")
		in.Password, _ = cmd.Flags().GetString("password")
		in.FullName, _ = cmd.Flags().GetString("name")
		role, _ := cmd.Flags().GetString("role")
		in.Role = models.Role(strings.ToUpper(role))
		if !in.Role.Valid() {
			return fmt.Errorf("unknown role %q (member, librarian, admin)", role)
		}

		a, err := app.New(cfg, lg)
		if err != nil {
			return err
		}
		defer a.Close()

		user, token, err := a.Services.Auth.Register(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("create user failed: %w", err)
		}
		if token != "" {
			if err := a.Services.Auth.VerifyEmail(cmd.Context(), token); err != nil {
				return fmt.Errorf("verify user failed: %w", err)
			}
		}

		color.Green("✓ account created")
		fmt.Printf("UserID: %s\nRole: %s\n", user.ID, user.Role)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringP("username", "u", "", "login name")
	userCreateCmd.Flags().StringP("email", "e", "", "email address")
	userCreateCmd.Flags().StringP("password", "p", "", "initial password")
	userCreateCmd.Flags().String("name", "", "full name")
	userCreateCmd.Flags().String("role", "librarian", "member, librarian or admin")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}
