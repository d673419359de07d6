package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-auth-client/authority"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/store"
	"github.com/jrsteele09/go-auth-client/store/filestore"
	"github.com/jrsteele09/go-auth-client/store/redistore"
)

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "sessionctl manages the local authenticated session",
	Long: `sessionctl holds the authenticated identity for the remote API, persists
it across runs, and reconciles it with the remote service before every
command. Configuration comes from the environment (AUTH_BASE_URL,
SESSION_STORE, SESSION_FILE, REDIS_ADDR, ...).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}

// cliDeps bundles everything a command needs: the environment config and a
// ready (but not yet initialized) session manager.
type cliDeps struct {
	cfg     config.Config
	manager *session.Manager
}

func buildDeps(cmd *cobra.Command) (*cliDeps, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := config.New()

	repo, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	// The refresh principal comes from the environment; without one the
	// manager still works, but failed validations fall through to logout.
	var principal authority.PrincipalSource
	if cfg.GetUsername() != "" {
		principal = authority.StaticPrincipal(cfg.GetUsername(), cfg.GetPassword())
	}
	authClient, err := buildAuthClient(cfg, principal)
	if err != nil {
		return nil, err
	}

	manager, err := session.New(
		session.Deps{Store: repo, Authority: authClient},
		session.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, err
	}
	go logEvents(manager.Events())

	return &cliDeps{cfg: cfg, manager: manager}, nil
}

func buildAuthClient(cfg config.Config, principal authority.PrincipalSource) (*authority.Client, error) {
	opts := []authority.ClientOption{
		authority.WithAPIPrefix(cfg.GetAPIPrefix()),
		authority.WithHTTPClient(&http.Client{Timeout: cfg.GetHTTPTimeout()}),
		authority.WithLogger(log.Logger),
	}
	if principal != nil {
		opts = append(opts, authority.WithPrincipalSource(principal))
	}
	return authority.NewClient(cfg.GetAuthBaseURL(), opts...)
}

func buildStore(cfg config.Config) (store.Repo, error) {
	switch backend := cfg.GetStoreBackend(); backend {
	case "redis":
		return redistore.New(cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB()), nil
	case "file":
		path := cfg.GetSessionFile()
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve home directory: %w", err)
			}
			path = filepath.Join(home, ".sessionctl", "session.yaml")
		}
		var opts []filestore.Option
		if passphrase := cfg.GetSessionPassphrase(); passphrase != "" {
			opts = append(opts, filestore.WithSealing(passphrase))
		}
		return filestore.New(path, opts...), nil
	default:
		return nil, fmt.Errorf("unknown session store backend %q", backend)
	}
}

func logEvents(events <-chan session.Event) {
	for ev := range events {
		log.Debug().Str("event", string(ev.Kind)).Err(ev.Err).Msg("session event")
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
