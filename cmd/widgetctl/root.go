package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/go-while/go-widgets/internal/apiclient"
	"github.com/go-while/go-widgets/internal/config"
)

// cli holds the persistent flags shared by all subcommands
type cli struct {
	configFile string
	apiURL     string
	timeout    time.Duration
	output     string

	// interactive reports whether prompts may be shown; replaced in tests
	interactive func() bool
}

func newRootCmd() *cobra.Command {
	return newCLICmd(&cli{
		interactive: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	})
}

func newCLICmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "widgetctl",
		Short: "Manage widgets through the widget REST API",
		Long: `widgetctl lists, shows, creates, updates and deletes widgets.

The backend address comes from --api, WIDGETS_API_BASE_URL or the config file,
in that order, and defaults to ` + config.DefaultAPIBaseURL + `.`,
		Version:       appVersion,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch c.output {
			case formatTable, formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (table, json or yaml)", c.output)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&c.apiURL, "api", "", "widget API base URL")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 0, "timeout per API request")
	rootCmd.PersistentFlags().StringVarP(&c.output, "output", "o", formatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(
		newListCmd(c),
		newGetCmd(c),
		newCreateCmd(c),
		newUpdateCmd(c),
		newDeleteCmd(c),
	)
	return rootCmd
}

// client builds an API client from config, environment and flags
func (c *cli) client() (*apiclient.Client, error) {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return nil, err
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}
	if c.timeout > 0 {
		cfg.API.Timeout = c.timeout
	}
	return apiclient.New(cfg.API)
}
