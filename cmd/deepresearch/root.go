package main

import (
	"github.com/kataras/golog"
	"github.com/spf13/cobra"
	"github.com/smallnest/deepresearch/config"
	"github.com/smallnest/deepresearch/log"
)

var (
	cfgFile  string
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "deepresearch",
	Short: "Multi-stage research report generator",
	Long: `deepresearch turns a research question into a cited Markdown report:
it expands the question into multiple search queries, gathers and
classifies web sources, indexes their content for retrieval, synthesizes
a report, and revises it until a quality reviewer accepts it.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		level := log.ParseLevel(settings.LogLevel)
		if settings.LogBackend == "golog" {
			log.SetDefaultLogger(log.NewGologLogger(golog.New(), level))
		} else {
			log.SetLogLevel(level)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML/TOML/JSON)")
	rootCmd.AddCommand(runCmd, serveCmd, versionCmd)
}
