package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contesthub/internal/model"
	"contesthub/internal/session"
)

func (c *cli) sessionCommands() []*cobra.Command {
	var email, password string
	login := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = c.prompt("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = c.prompt("Password: "); err != nil {
					return err
				}
			}
			res := c.app.Session.Login(cmd.Context(), email, password)
			if err := c.result(res); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Logged in as %s (%s)\n", res.Identity.Name, res.Identity.Role)
			return nil
		},
	}
	login.Flags().StringVar(&email, "email", "", "account email")
	login.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.Session.Logout(cmd.Context())
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.identity()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s <%s>\nrole:   %s\nschool: %s\nid:     %s\n", id.Name, id.Email, id.Role, orDash(id.School), id.ID)
			return nil
		},
	}

	return []*cobra.Command{login, logout, whoami, c.registerCmd(), c.resetPasswordCmd()}
}

func (c *cli) registerCmd() *cobra.Command {
	var form session.RegisterForm
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (a verification code is mailed first)",
		Long: `Create an account. A 6-digit code is sent to --email and prompted for.
Type "resend" at the prompt for a new code.

Admins founding a new school receive its school code; students join with
the school name or code and are logged in right away.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			form.Role = model.Role(strings.ToLower(role))
			wizard := c.app.Session.NewRegistration()
			if _, err := c.step(wizard.RequestCode(ctx, form.Email)); err != nil {
				return err
			}
			for {
				code, err := c.prompt("Verification code: ")
				if err != nil {
					return err
				}
				if code == "resend" {
					if _, err := c.step(wizard.RequestCode(ctx, form.Email)); err != nil {
						return err
					}
					continue
				}
				form.OTP = code
				res, err := wizard.Submit(ctx, form)
				if err != nil {
					return err
				}
				if !res.Success {
					fmt.Fprintln(c.out, bad(res.Message))
					c.fields(res.Errors)
					continue
				}
				if res.SchoolCode != "" {
					fmt.Fprintf(c.out, "%s\nSchool code: %s (share it with your students)\n", good(res.Message), res.SchoolCode)
					return nil
				}
				fmt.Fprintf(c.out, "%s\nLogged in as %s\n", good(res.Message), res.Identity.Name)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "password, at least 6 characters")
	cmd.Flags().StringVar(&role, "role", string(model.RoleStudent), "student or admin")
	cmd.Flags().StringVar(&form.School, "school", "", "school name (admins) or name/code (students)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var email, newPassword string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten password with a mailed code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wizard := c.app.Session.NewPasswordReset()
			if _, err := c.step(wizard.RequestCode(ctx, email)); err != nil {
				return err
			}
			for {
				code, err := c.prompt("Reset code: ")
				if err != nil {
					return err
				}
				if code == "resend" {
					if _, err := c.step(wizard.RequestCode(ctx, email)); err != nil {
						return err
					}
					continue
				}
				res, err := wizard.Reset(ctx, code, newPassword)
				if err != nil {
					return err
				}
				if res.Success {
					fmt.Fprintln(c.out, good(res.Message))
					return nil
				}
				fmt.Fprintln(c.out, bad(res.Message))
				c.fields(res.Errors)
			}
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "the new password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("new-password")
	return cmd
}

// step reports a wizard code request.
func (c *cli) step(res session.Result, err error) (session.Result, error) {
	if err != nil {
		return res, err
	}
	if !res.Success {
		c.fields(res.Errors)
		return res, errors.New(res.Message)
	}
	fmt.Fprintln(c.out, faint(res.Message))
	return res, nil
}
