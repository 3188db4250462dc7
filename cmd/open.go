package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/myfs/internal/volume"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Create the volume if absent, or validate an existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Volume access password (leave blank for none): ")
		if err != nil {
			return err
		}
		if _, err := volume.Open(volumePath, metadataPath, password); err != nil {
			return err
		}
		fmt.Println("volume ready:", volumePath)
		return nil
	},
}
