package main

import (
	"fmt"
	"runtime"

	"imgvault/pkg/version"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var short, asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version.String())
				return nil
			}

			info := version.Info()
			info["goVersion"] = runtime.Version()
			info["platform"] = runtime.GOOS + "/" + runtime.GOARCH
			if asJSON {
				return printJSON(out, info)
			}

			fmt.Fprintf(out, "imgctl %s\n", version.StringWithCommit())
			fmt.Fprintf(out, "  commit:     %s\n", info["commit"])
			fmt.Fprintf(out, "  built:      %s\n", info["buildTime"])
			fmt.Fprintf(out, "  go version: %s\n", info["goVersion"])
			fmt.Fprintf(out, "  platform:   %s\n", info["platform"])
			if !version.IsRelease() {
				fmt.Fprintln(out, "  (development build)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
