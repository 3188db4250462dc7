package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/myfs/internal/myfserr"
)

var (
	exportName string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a file from the volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		filePassword, err := promptPassword("File password (leave blank if none): ")
		if err != nil {
			return err
		}
		if err := currentVolume.ExportFile(exportName, exportOut, filePassword); err != nil {
			if myfserr.Is(err, myfserr.KindNoDestination) {
				return fmt.Errorf("%w (pass --out explicitly)", err)
			}
			return err
		}
		fmt.Println("exported:", exportName)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportName, "name", "", "name of the file to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "destination path (defaults to the file's original source path)")
	exportCmd.MarkFlagRequired("name")
}
