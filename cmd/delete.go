package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteName string

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a file from the volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := currentVolume.DeleteFile(deleteName); err != nil {
			return err
		}
		fmt.Println("deleted:", deleteName)
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteName, "name", "", "name of the file to delete")
	deleteCmd.MarkFlagRequired("name")
}
