package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/pagedit/internal/mcp"
	"github.com/ziadkadry99/pagedit/internal/stylescope"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the site's pages, their content blocks and stylesheet scoping as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		l, err := newLoader(cfg, stylescope.New(log), log)
		if err != nil {
			return err
		}

		// A nil *pages.Lister must not reach the interface.
		var lister mcpserver.PageLister
		if pl := newLister(cfg, log); pl != nil {
			lister = pl
		}

		mcpserver.Version = Version
		srv := mcpserver.NewServer(l, lister)

		// All output besides MCP protocol goes to stderr.
		fmt.Fprintf(os.Stderr, "pagedit MCP server starting (site: %s)\n", describeSite(cfg.SiteURL, cfg.SiteRoot))
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
