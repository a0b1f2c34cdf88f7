// Command boardctl drives a posterboard server from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"posterboard/internal/boardclient"

	"github.com/spf13/viper"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"pins":    {"list every pin", runPins},
	"list":    {"team list view, newest first with reply counts", runList},
	"post":    {"pin a comment at -x/-y (fractions of the poster)", runPost},
	"delete":  {"delete a pin by id", runDelete},
	"reply":   {"reply to a pin", runReply},
	"replies": {"show a pin's thread", runReplies},
	"watch":   {"stream live board or thread events", runWatch},
	"flyto":   {"center a pin in a virtual viewport and open it", runFlyTo},
	"unlock":  {"trade the team secret for a token", runUnlock},
	"poster":  {"show or -upload the poster", runPoster},
}

// settings come from BOARD_* environment variables.
type settings struct {
	URL     string
	Timeout time.Duration
	Token   string
	Secret  string
}

func loadSettings() settings {
	v := viper.New()
	v.SetEnvPrefix("BOARD")
	v.AutomaticEnv()
	v.SetDefault("URL", "http://localhost:8080")
	v.SetDefault("TIMEOUT", "15s")
	v.SetDefault("TOKEN", "")
	v.SetDefault("TEAM_SECRET", "")

	return settings{
		URL:     v.GetString("URL"),
		Timeout: v.GetDuration("TIMEOUT"),
		Token:   v.GetString("TOKEN"),
		Secret:  v.GetString("TEAM_SECRET"),
	}
}

type app struct {
	client *boardclient.Client
	secret string
	out    io.Writer
	errOut io.Writer
}

// ensureTeam makes sure the client carries a team token.
func (a *app) ensureTeam(ctx context.Context) error {
	if a.client.Token() != "" {
		return nil
	}
	if a.secret == "" {
		return errors.New("this command needs BOARD_TOKEN or BOARD_TEAM_SECRET")
	}
	_, err := a.client.Unlock(ctx, a.secret)
	return err
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: boardctl [-url URL] <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := loadSettings()

	fs := flag.NewFlagSet("boardctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.URL, "url", cfg.URL, "server base URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}

	name := strings.ToLower(fs.Arg(0))
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr)
		return 2
	}

	client := boardclient.New(cfg.URL, cfg.Timeout)
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	a := &app{client: client, secret: cfg.Secret, out: stdout, errOut: stderr}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}
