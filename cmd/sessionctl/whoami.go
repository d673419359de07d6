package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-auth-client/authority"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current identity and decoded credential claims",
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
			fmt.Println("Not logged in.")
			os.Exit(1)
		}

		identity := current.Identity
		fmt.Printf("User:     %s (id %d)\n", identity.Username, identity.ID)
		fmt.Printf("Email:    %s\n", identity.Email)
		fmt.Printf("Admin:    %t\n", identity.Admin)
		if !identity.CreatedAt.IsZero() {
			fmt.Printf("Created:  %s\n", identity.CreatedAt.Format(time.RFC3339))
		}

		// Claims are decoded without signature verification, display only.
		claims, err := authority.DecodeClaims(current.Credential)
		if err != nil {
			fmt.Printf("Credential: opaque (not a decodable JWT)\n")
			return
		}
		if claims.Subject != "" {
			fmt.Printf("Subject:  %s\n", claims.Subject)
		}
		if !claims.ExpiresAt.IsZero() {
			fmt.Printf("Expires:  %s\n", claims.ExpiresAt.Format(time.RFC3339))
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
