package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pagedit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pagedit configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure pagedit for your site and generates a .pagedit.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
