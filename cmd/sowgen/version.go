package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/renovatehq/sowgen/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sowgen version %s\n", version.Get())
	},
}
