// Package cmd implements the btsync command line: it inspects, executes and
// watches the backtests of portfolios through the portfolio API.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/tracker"
	"github.com/google/subcommands"
)

// Commands are the btsync subcommands, by group.
var Commands = map[string][]subcommands.Command{
	"portfolios": {&portfoliosCmd{}, &portfolioCmd{}, &addPortfolioCmd{}},
	"backtests":  {&statusCmd{}, &listCmd{}, &detailCmd{}, &createCmd{}},
	"execution":  {&executeCmd{}, &watchCmd{}},
	"market":     {&pricesCmd{}, &searchCmd{}},
	"assistant":  {&assistCmd{}, &chatCmd{}, &topicCmd{}},
}

// Register the subcommands.
func Register(c *subcommands.Commander) {
	for group, cmds := range Commands {
		for _, cmd := range cmds {
			c.Register(cmd, group)
		}
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	apiURL     = flag.String("api-url", api.DefaultBaseURL, "Base URL of the portfolio API (env "+EnvAPIURL+")")
	timeout    = flag.Duration("timeout", api.DefaultTimeout, "Timeout of each API call (env "+EnvTimeout+")")
	interval   = flag.Duration("interval", tracker.DefaultInterval, "Delay between two status polls (env "+EnvInterval+")")
	currency   = flag.String("currency", renderer.DefaultCurrency, "Currency of prices and values (env "+EnvCurrency+")")
	verbose    = flag.Bool("verbose", false, "Log every API call (env "+EnvVerbose+")")
	configFile = flag.String("config", "", "Path to a TOML or YAML configuration file (env "+EnvConfig+")")
	raw        = flag.Bool("raw", false, "Print markdown without terminal rendering")
)

// stdout is where commands print their results.
var stdout io.Writer = os.Stdout

// loadSettings resolves the global options from the command line, the
// environment, the .env file and the configuration file.
func loadSettings() (Settings, error) {
	if err := loadEnv(); err != nil {
		return Settings{}, err
	}
	flags := make(map[string]string)
	flag.CommandLine.Visit(func(f *flag.Flag) { flags[f.Name] = f.Value.String() })

	path := *configFile
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	var cfg Config
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return Settings{}, err
		}
	}
	return Resolve(flags, os.Getenv, cfg)
}

// newClient creates the API client from the resolved settings.
func newClient(s Settings) (*api.Client, error) {
	opts := []api.Option{api.WithTimeout(s.Timeout), api.WithVerbose(s.Verbose)}
	for k, v := range s.Headers {
		opts = append(opts, api.WithHeader(k, v))
	}
	return api.NewClient(s.APIURL, opts...)
}

// session is what most commands need: settings, a client and a job store.
type session struct {
	Settings
	client *api.Client
	store  *backtest.Store
}

// openSession prints the error and returns nil if the settings are invalid.
func openSession() *session {
	s, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		return nil
	}
	client, err := newClient(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating API client: %v\n", err)
		return nil
	}
	return &session{Settings: s, client: client, store: backtest.NewStore()}
}

// controller returns a polling controller reading and executing through the
// session client.
func (s *session) controller() *tracker.Controller {
	poller := tracker.NewPoller(s.client, s.store)
	return tracker.NewController(poller, s.store,
		tracker.WithInterval(s.Interval),
		tracker.WithExecutor(s.client),
		tracker.WithLister(s.client),
	)
}

// printMarkdown prints a markdown document, rendered for the terminal unless
// -raw is set.
func printMarkdown(md string) {
	if *raw {
		fmt.Fprintln(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		log.Printf("cannot render markdown: %v", err)
		fmt.Fprintln(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		log.Printf("cannot render markdown: %v", err)
		fmt.Fprintln(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
