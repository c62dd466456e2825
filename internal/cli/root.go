package cli

import (
	"fmt"

	"github.com/juanjtov/bidmate/internal/api"
	"github.com/juanjtov/bidmate/internal/config"
	"github.com/juanjtov/bidmate/internal/engine"
	"github.com/juanjtov/bidmate/internal/logging"
	"github.com/juanjtov/bidmate/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bidmate",
		Short: "Bidmate — conversational construction estimating",
		Long:  "Bidmate talks to the remote estimation service to draft construction bids and quotes through streamed conversations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			cfg := loadConfigOrDefaults()
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			log = logging.NewConsole(level, cfg.Logging.ConsoleStyle)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.bidmate/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newConversationsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func loadConfigOrDefaults() config.Config {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return config.Defaults()
	}
	return cfg
}

// newEngine wires the full client stack from configuration: API transport,
// session store and conversation engine. The returned cleanup closes all of
// it and must always be called.
func newEngine() (*engine.Engine, func(), error) {
	cfg := loadConfigOrDefaults()
	if cfg.API.BaseURL == "" {
		return nil, nil, fmt.Errorf("api.baseUrl is not configured (set it with: bidmate config set api.baseUrl <url>)")
	}
	if cfg.API.OrgID == "" {
		return nil, nil, fmt.Errorf("api.orgId is not configured (set it with: bidmate config set api.orgId <id>)")
	}

	var (
		sessions engine.SessionStore
		closeDB  func()
	)
	if cfg.Session.Store == "memory" {
		sessions = engine.NewMemorySessionStore()
	} else {
		if err := paths.EnsureDirs(); err != nil {
			return nil, nil, err
		}
		db, err := store.Open(paths.Sessions, log)
		if err != nil {
			return nil, nil, err
		}
		sessions = store.NewSQLiteSessionStore(db)
		closeDB = func() { db.Close() }
	}

	eng := engine.New(
		engine.Options{OrgID: cfg.API.OrgID, Debounce: cfg.SearchDebounce()},
		api.NewClient(cfg.API.BaseURL, cfg.API.Token),
		sessions,
		log,
	)

	cleanup := func() {
		eng.Close()
		if closeDB != nil {
			closeDB()
		}
	}
	return eng, cleanup, nil
}
