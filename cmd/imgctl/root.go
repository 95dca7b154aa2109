package main

import (
	"fmt"
	"os"

	"imgvault/config"
	"imgvault/pkg/cache"
	service "imgvault/pkg/services"
	"imgvault/pkg/utils"

	"github.com/spf13/cobra"
)

// cli holds what every subcommand shares once flags are parsed
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	log    *utils.Logger
	images *service.ImageService
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "imgctl",
		Short: "Optimize and inspect images",
		Long: `imgctl runs the imgvault variant pipeline on local files.

Example usage:
  imgctl optimize photo.jpg --out ./public   # write every tier and print the manifest
  imgctl info photo.jpg                       # dimensions, format, alpha, orientation
  imgctl srcset manifest.json                 # srcset attribute of a saved manifest`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration (default: environment only)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newOptimizeCmd(c),
		newInfoCmd(c),
		newValidateCmd(c),
		newPlaceholderCmd(c),
		newSrcSetCmd(),
		newVersionCmd(),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadConfig(c.configPath)
	} else {
		c.cfg, err = config.LoadConfigFromEnv()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	c.log = utils.NewLogger(utils.Config{
		LogLevel:  level,
		LogFormat: "text",
		Output:    os.Stderr,
	})

	// one-shot commands only need a small cache
	shared := cache.New[any](cache.Options{MaxSize: 64, Logger: c.log})
	c.images = service.NewImageService(c.cfg, shared, c.log)
	return nil
}
