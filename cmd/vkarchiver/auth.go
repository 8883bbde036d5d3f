package main

import (
	"github.com/spf13/cobra"

	"vkarchiver/pkg/auth"
	"vkarchiver/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored VK access token",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a VK access token in the system keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := auth.PromptToken()
		if err != nil {
			return err
		}
		store, err := auth.NewStore()
		if err != nil {
			return err
		}
		if err := store.Store(token); err != nil {
			return err
		}
		ui.PrintSuccess("Access token stored")
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored VK access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := auth.NewStore()
		if err != nil {
			return err
		}
		if err := store.Delete(); err != nil {
			return err
		}
		ui.PrintSuccess("Access token removed")
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}
