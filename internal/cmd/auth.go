package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/authflow/internal/tui"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "account password (or AUTHFLOW_PASSWORD)")
}

// resolve fills missing credentials from AUTHFLOW_PASSWORD and, on an
// interactive terminal, from prompts.
func (f *credentialFlags) resolve(confirm bool) (tui.Credentials, error) {
	creds := tui.Credentials{Email: f.email, Password: f.password}
	if creds.Password == "" {
		creds.Password = os.Getenv("AUTHFLOW_PASSWORD")
	}
	if creds.Missing() && tui.ShouldPrompt() {
		if err := tui.PromptCredentials(&creds, confirm); err != nil {
			return creds, err
		}
	}
	if creds.Missing() {
		return creds, fmt.Errorf("required flag(s) \"email\", \"password\" not set")
	}
	return creds, nil
}

func newSignupCmd(a *app) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account on the API. Signing up does not log you in; run
"authflow login" afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := flags.resolve(true)
			if err != nil {
				return err
			}
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := c.Signup(cmd.Context(), creds.Email, creds.Password)
			if err != nil {
				return userFacing(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Message)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := flags.resolve(false)
			if err != nil {
				return err
			}
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := c.Login(cmd.Context(), creds.Email, creds.Password)
			if err != nil {
				return userFacing(err)
			}
			who := creds.Email
			if rec.User != nil {
				who = rec.User.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", who)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Long:  `Forget the stored token and profile. The API is not contacted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			was := c.Machine().State().IsAuthenticated
			if _, err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			if was {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			}
			return nil
		},
	}
}
