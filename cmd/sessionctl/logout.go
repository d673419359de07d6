package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the session and its persisted copy",
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
		if err := deps.manager.Logout(); err != nil {
			fmt.Printf("Error clearing session: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Logged out.")
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
