package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var passwdName string

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change a file's own password (reset_password)",
	RunE: func(cmd *cobra.Command, args []string) error {
		oldPassword, err := promptPassword("Current file password: ")
		if err != nil {
			return err
		}
		newPassword, err := promptPassword("New file password: ")
		if err != nil {
			return err
		}
		if err := currentVolume.ResetPassword(passwdName, oldPassword, newPassword); err != nil {
			return err
		}
		fmt.Println("password changed for:", passwdName)
		return nil
	},
}

func init() {
	passwdCmd.Flags().StringVar(&passwdName, "name", "", "name of the file")
	passwdCmd.MarkFlagRequired("name")
}
