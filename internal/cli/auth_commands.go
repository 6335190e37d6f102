package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"igait-client/internal/validation"
)

func newLoginCommand(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = promptIfEmpty(email, "Email: "); err != nil {
				return err
			}
			if checked := validation.ValidateEmail(email); checked.IsErr() {
				return checked.Error()
			}
			if password, err = promptIfEmpty(password, "Password: "); err != nil {
				return err
			}

			res := a.auth.SignInWithEmail(cmd.Context(), email, password)
			if res.IsErr() {
				return res.Error()
			}

			color.Green("Signed in as %s", res.Value().Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newRegisterCommand(a *app) *cobra.Command {
	var email, password, confirm string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = promptIfEmpty(email, "Email: "); err != nil {
				return err
			}
			if checked := validation.ValidateEmail(email); checked.IsErr() {
				return checked.Error()
			}
			if password, err = promptIfEmpty(password, "Password: "); err != nil {
				return err
			}
			if checked := validation.ValidatePassword(password); checked.IsErr() {
				return checked.Error()
			}
			if confirm, err = promptIfEmpty(confirm, "Confirm password: "); err != nil {
				return err
			}
			if checked := validation.ValidatePasswordMatch(password, confirm); checked.IsErr() {
				return checked.Error()
			}

			res := a.auth.SignUpWithEmail(cmd.Context(), email, password)
			if res.IsErr() {
				return res.Error()
			}

			color.Green("Account created for %s", res.Value().Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (prompted when omitted)")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.SignOut(); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, ok := a.auth.CurrentUser().Unwrap()
			if !ok {
				fmt.Println("Not signed in.")
				return nil
			}
			fmt.Printf("%s (%s)\n", user.Email, user.UID)
			return nil
		},
	}
}

func promptIfEmpty(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
