package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-auth-client/authority"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the remote service and persist the session",
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := buildDeps(cmd)
		if err != nil {
			fmt.Printf("Error preparing session manager: %v\n", err)
			os.Exit(1)
		}
		displayAppname(deps.cfg.GetAppName())

		if err := deps.manager.Initialize(cmd.Context()); err != nil {
			fmt.Printf("Error initializing session: %v\n", err)
			os.Exit(1)
		}

		client, err := buildAuthClient(deps.cfg, authority.StaticPrincipal(loginUsername, loginPassword))
		if err != nil {
			fmt.Printf("Error building auth client: %v\n", err)
			os.Exit(1)
		}

		cred, identity, err := client.Issue(cmd.Context())
		if err != nil {
			fmt.Printf("Login failed: %v\n", err)
			os.Exit(1)
		}
		if err := deps.manager.Login(identity, cred); err != nil {
			fmt.Printf("Error persisting session: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Logged in as %s <%s>\n", identity.Username, identity.Email)
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username to authenticate with")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password to authenticate with")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(loginCmd)
}
