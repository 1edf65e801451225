package cmd

import "github.com/spf13/cobra"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pagedit",
	Short: "Live HTML page editor with synchronized source, rendered and preview views",
	Long: `pagedit opens the pages of a static site for editing in three synchronized
views: the raw HTML source, a rendered view of the page's editable region
styled with the site's own stylesheets, and an isolated preview of the
real page. Edits in any view flow back into the page text.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".pagedit.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
