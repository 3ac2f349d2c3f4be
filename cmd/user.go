/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veristat/apiserver/config"
	"github.com/veristat/apiserver/internal/db"
	"github.com/veristat/apiserver/internal/store"
)

// userCmd groups account operations that have no API surface: role
// promotion and deactivation happen only from here.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote [username]",
	Short: "Grant the admin role to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUserRepo(cmd, func(repo *store.UserRepository) error {
			return repo.SetAdmin(cmd.Context(), args[0], true)
		})
	},
}

var userDemoteCmd = &cobra.Command{
	Use:   "demote [username]",
	Short: "Remove the admin role from an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUserRepo(cmd, func(repo *store.UserRepository) error {
			return repo.SetAdmin(cmd.Context(), args[0], false)
		})
	},
}

var userActivateCmd = &cobra.Command{
	Use:   "activate [username]",
	Short: "Reactivate an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUserRepo(cmd, func(repo *store.UserRepository) error {
			return repo.SetActive(cmd.Context(), args[0], true)
		})
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate [username]",
	Short: "Deactivate an account without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUserRepo(cmd, func(repo *store.UserRepository) error {
			return repo.SetActive(cmd.Context(), args[0], false)
		})
	},
}

func withUserRepo(cmd *cobra.Command, fn func(repo *store.UserRepository) error) error {
	cfg := config.LoadConfig()
	dbConn, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer dbConn.Close()

	return fn(store.NewUserRepository(dbConn))
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userPromoteCmd, userDemoteCmd, userActivateCmd, userDeactivateCmd)
}
