package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"imgvault/pkg/models"
	"imgvault/pkg/utils"

	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newOptimizeCmd(c *cli) *cobra.Command {
	var (
		outDir      string
		baseName    string
		noThumbnail bool
		noPreview   bool
		atomic      bool
	)

	cmd := &cobra.Command{
		Use:   "optimize <src>",
		Short: "Write every variant of an image and print its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseName == "" {
				baseName = utils.NewBaseName()
			}
			if err := utils.ValidateBaseName(baseName); err != nil {
				return err
			}

			opts := models.OptimizeOptions{
				GenerateThumbnail: !noThumbnail,
				GeneratePreview:   !noPreview,
				Atomic:            atomic || c.cfg.Images.Atomic,
			}

			manifest, err := c.images.Optimize(cmd.Context(), args[0], outDir, baseName, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), manifest)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&baseName, "base", "", "base name of the variants (default: generated)")
	cmd.Flags().BoolVar(&noThumbnail, "no-thumbnail", false, "skip the thumbnail tier")
	cmd.Flags().BoolVar(&noPreview, "no-preview", false, "skip the preview tier")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "publish the variants only when every tier succeeded")
	return cmd
}

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info <path>",
		Short: "Print dimensions, format, alpha and orientation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := c.images.GetImageInfo(args[0])
			if info == nil {
				return fmt.Errorf("cannot read image %s", args[0])
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Exit with an error unless the file is a supported image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.images.ValidateImage(args[0]) {
				return fmt.Errorf("%s is not a supported image", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func newPlaceholderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "placeholder <path>",
		Short: "Print the blurred data URL placeholder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.images.GeneratePlaceholder(args[0]))
			return nil
		},
	}
}

func newSrcSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "srcset <manifest.json>",
		Short: "Print the srcset attribute of a saved manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var manifest models.OptimizationManifest
			if err := json.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("parsing manifest: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), manifest.SrcSet())
			return nil
		},
	}
}
