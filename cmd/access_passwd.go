package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var accessPasswdCmd = &cobra.Command{
	Use:   "access-passwd",
	Short: "Change the volume-level access password",
	RunE: func(cmd *cobra.Command, args []string) error {
		newPassword, err := promptPassword("New volume access password (leave blank to remove): ")
		if err != nil {
			return err
		}
		if err := currentVolume.ChangeAccessPassword(accessPass, newPassword); err != nil {
			return err
		}
		fmt.Println("volume access password updated")
		return nil
	},
}
