package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files stored in the volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := currentVolume.ListFiles()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-32s  original=%-10d encrypted=%-10d password=%v  modified=%s\n",
				e.Filename, e.OriginalSize, e.EncryptedSize, e.HasPassword, e.ModificationDate)
		}
		return nil
	},
}
