package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MarkoPoloResearchLab/voyages/internal/httpapi"
	"github.com/MarkoPoloResearchLab/voyages/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

const (
	flagUserName  = "name"
	flagUserEmail = "email"
	flagUserRole  = "role"
	flagTokenTTL  = "token-ttl"
	flagUserID    = "id"

	defaultTokenTTL = 24 * time.Hour
)

func newUserCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCommand(v), newUserTokenCommand(v))
	return cmd
}

func newUserCreateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a user and print a bearer token for it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, v, flagDatabaseURL, flagAutoMigrate, flagJWTSigningKey, flagJWTIssuer); err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString(flagUserName)
			email, _ := cmd.Flags().GetString(flagUserEmail)
			rawRole, _ := cmd.Flags().GetString(flagUserRole)
			ttl, _ := cmd.Flags().GetDuration(flagTokenTTL)
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("%s is required", flagUserEmail)
			}
			role, err := booking.ParseRole(rawRole)
			if err != nil {
				return err
			}
			tokens, err := httpapi.NewTokenAuthority(v.GetString(flagJWTSigningKey), v.GetString(flagJWTIssuer))
			if err != nil {
				return err
			}

			gormDB, cleanup, driver, err := openDatabase(cmd.Context(), v.GetString(flagDatabaseURL))
			if err != nil {
				return fmt.Errorf("database open: %w", err)
			}
			defer cleanup()
			if err := prepareSchema(gormDB, driver, v.GetBool(flagAutoMigrate)); err != nil {
				return err
			}

			user, err := gormstore.New(gormDB).CreateUser(cmd.Context(), booking.User{
				Name:   strings.TrimSpace(name),
				Email:  email,
				Role:   role,
				Active: true,
			})
			if err != nil {
				return err
			}
			signed, err := tokens.Issue(booking.Actor{ID: user.ID, Role: user.Role}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id: %s\nrole: %s\ntoken: %s\n", user.ID, user.Role, signed)
			return nil
		},
	}
	cmd.Flags().String(flagUserName, "", "display name")
	cmd.Flags().String(flagUserEmail, "", "email address (required)")
	cmd.Flags().String(flagUserRole, string(booking.RoleUser), "role: user, admin, superadmin or manager")
	cmd.Flags().Duration(flagTokenTTL, defaultTokenTTL, "lifetime of the printed token")
	return cmd
}

func newUserTokenCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Print a bearer token for an existing user",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, v, flagDatabaseURL, flagJWTSigningKey, flagJWTIssuer); err != nil {
				return err
			}
			rawID, _ := cmd.Flags().GetString(flagUserID)
			ttl, _ := cmd.Flags().GetDuration(flagTokenTTL)
			userID, err := booking.NewUserID(rawID)
			if err != nil {
				return err
			}
			tokens, err := httpapi.NewTokenAuthority(v.GetString(flagJWTSigningKey), v.GetString(flagJWTIssuer))
			if err != nil {
				return err
			}

			gormDB, cleanup, _, err := openDatabase(cmd.Context(), v.GetString(flagDatabaseURL))
			if err != nil {
				return fmt.Errorf("database open: %w", err)
			}
			defer cleanup()

			user, err := gormstore.New(gormDB).GetUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if !user.Active {
				return fmt.Errorf("user %s is inactive", user.ID)
			}
			signed, err := tokens.Issue(booking.Actor{ID: user.ID, Role: user.Role}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().String(flagUserID, "", "user id (required)")
	cmd.Flags().Duration(flagTokenTTL, defaultTokenTTL, "token lifetime")
	return cmd
}
