package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Replace the current credential with a freshly issued one",
	Long: `Asks the remote service to issue a new credential for the principal
configured via AUTH_USERNAME/AUTH_PASSWORD. On failure the session is
cleared, so a stale credential never survives.`,
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

		if !deps.manager.Refresh(cmd.Context()) {
			fmt.Println("Refresh failed, session cleared.")
			os.Exit(1)
		}

		current := deps.manager.Current()
		fmt.Printf("Session refreshed for %s <%s>\n", current.Identity.Username, current.Identity.Email)
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
