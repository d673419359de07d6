package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state after reconciling with the remote service",
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := buildDeps(cmd)
		if err != nil {
			fmt.Printf("Error preparing session manager: %v\n", err)
			os.Exit(1)
		}
		if err := deps.manager.Initialize(cmd.Context()); err != nil {
			fmt.Printf("Error initializing session: %v\n", err)
			os.Exit(1)
		}

		current := deps.manager.Current()
		if !current.Authenticated() {
			fmt.Println("Anonymous: no valid session.")
			return
		}

		fmt.Printf("Authenticated as %s <%s>\n", current.Identity.Username, current.Identity.Email)
		if current.Identity.Admin {
			fmt.Println("Role: admin")
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
