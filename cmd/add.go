package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addSource       string
	addName         string
	addWithPassword bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a file to the volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		filePassword := ""
		if addWithPassword {
			var err error
			filePassword, err = promptPassword("File password: ")
			if err != nil {
				return err
			}
		}
		if err := currentVolume.AddFile(addSource, addName, filePassword); err != nil {
			return err
		}
		fmt.Println("added:", addName)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addSource, "source", "", "path to the file to add")
	addCmd.Flags().StringVar(&addName, "name", "", "name to store the file under")
	addCmd.Flags().BoolVar(&addWithPassword, "with-password", false, "protect the file with its own password")
	addCmd.MarkFlagRequired("source")
	addCmd.MarkFlagRequired("name")
}
