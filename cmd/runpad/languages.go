package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List available languages",
	Run: func(cmd *cobra.Command, args []string) {
		env, err := setupEnvironment(cmd, false)
		if err != nil {
			fatalf("%v", err)
		}
		defer env.Close()

		for _, tag := range env.registry.Languages() {
			rn, _ := env.registry.Get(tag)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag, rn.Mode())
		}
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
