// Command orgmesh starts an interactive session against an organizational
// mesh: every roster role becomes an addressable agent, and the terminal
// talks to one of them. Configuration comes from flags and a .env file.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/orgmesh"
	"github.com/hupe1980/orgmesh/logging"
	"github.com/hupe1980/orgmesh/reasoner"
	"github.com/hupe1980/orgmesh/reasoner/anthropic"
	"github.com/hupe1980/orgmesh/reasoner/openai"
	"github.com/hupe1980/orgmesh/roles"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	rolesPath string
	provider  string
	target    string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "orgmesh",
		Short:         "Interactive organizational agent mesh",
		Long:          "orgmesh wires a roster of role agents onto one message bus and opens an interactive session with one of them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.rolesPath, "roles", "", "path to a YAML roster (defaults to the built-in roster)")
	cmd.Flags().StringVar(&f.provider, "reasoner", "auto", "reasoner backend: openai, anthropic, mock or auto")
	cmd.Flags().StringVar(&f.target, "node", "ceo", "role id of the agent to talk to")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, f *flags) error {
	// Missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	roster := roles.Default()
	if f.rolesPath != "" {
		loaded, err := roles.Load(f.rolesPath)
		if err != nil {
			return err
		}
		roster = loaded
	}

	rsn, err := buildReasoner(f.provider)
	if err != nil {
		return err
	}

	mesh := orgmesh.New(func(o *orgmesh.Options) {
		o.Logger = logging.NewSlogLogger(parseLevel(f.logLevel), "text", false)
		o.Roster = roster
		o.Reasoner = rsn
	})
	mesh.AddRosterNodes()

	if _, ok := mesh.Node(f.target); !ok {
		return fmt.Errorf("unknown node %q, roster has: %s", f.target, strings.Join(roster.IDs(), ", "))
	}

	fmt.Printf("Connected to %s. Type a message, or 'exit' to quit.\n", f.target)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		reply, _ := mesh.Ask(ctx, "user", f.target, line)
		fmt.Println(reply)
	}
}

// buildReasoner picks the backend. In auto mode the available API key
// decides, falling back to the scripted mock so the CLI works offline.
func buildReasoner(name string) (reasoner.Reasoner, error) {
	switch name {
	case "openai":
		return openai.New(), nil
	case "anthropic":
		return anthropic.New(), nil
	case "mock":
		return reasoner.NewMock(), nil
	case "auto":
		if os.Getenv("OPENAI_API_KEY") != "" {
			return openai.New(), nil
		}
		if os.Getenv("ANTHROPIC_API_KEY") != "" {
			return anthropic.New(), nil
		}
		return reasoner.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown reasoner %q (want openai, anthropic, mock or auto)", name)
	}
}

func parseLevel(s string) logging.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LogLevelDebug
	case "info":
		return logging.LogLevelInfo
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelWarn
	}
}
