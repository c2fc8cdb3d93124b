// Command ef is a command line client for EventFlow.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/app"
	"github.com/and161185/eventflow/internal/config"
	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/logging"
	"github.com/and161185/eventflow/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// errUsage marks bad invocations; they exit with status 2.
var errUsage = errors.New("usage")

func usageErr(msg string) error { return fmt.Errorf("%w: %s", errUsage, msg) }

// commandScreens maps commands to the screen they act on.
var commandScreens = map[string]app.Screen{
	"register":        app.ScreenRegister,
	"login":           app.ScreenLogin,
	"logout":          app.ScreenProfile,
	"whoami":          app.ScreenProfile,
	"events":          app.ScreenEvents,
	"event":           app.ScreenEventDetail,
	"create-event":    app.ScreenCreateEvent,
	"rm-event":        app.ScreenEvents,
	"map":             app.ScreenMap,
	"categories":      app.ScreenCategories,
	"add-category":    app.ScreenCategories,
	"rename-category": app.ScreenCategories,
	"rm-category":     app.ScreenCategories,
	"locations":       app.ScreenLocations,
	"add-location":    app.ScreenLocations,
	"rm-location":     app.ScreenLocations,
}

func usage() {
	fmt.Fprintf(os.Stderr, `ef CLI
Usage:
  ef [-config file] <cmd> [args]

Commands:
  version
  register         -name <name> -email <email> -password <pw>
  login            -email <email> -password <pw>        (saves session)
  logout
  whoami
  events           [-q <text>] [-watch] [-json]
  event            -id <id>
  create-event     -name -description -category <id> -location <id>
                   [-date dd/mm/yyyy] [-start HH:MM] [-end HH:MM] -price <v> [-image file]
  rm-event         -id <id> [-y]
  map              [-watch] [-json]
  categories
  add-category     -name <name>
  rename-category  -id <id> -name <name>
  rm-category      -id <id> [-y]
  locations
  add-location     -name <name> -lat <v> -long <v> [-address <text> | -geocode]
  rm-location      -id <id> [-y]
`)
	os.Exit(2)
}

// cli runs one command against the app.
type cli struct {
	app *app.App
	in  *bufio.Reader
	out io.Writer

	outMu sync.Mutex // serializes watch blocks written from poll callbacks
}

func newCLI(a *app.App, in io.Reader, out io.Writer) *cli {
	return &cli{app: a, in: bufio.NewReader(in), out: out}
}

// main loads configuration, builds the app and dispatches the subcommand.
func main() {
	cfgPath := flag.String("config", "", "config file (default <config dir>/config.yaml)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	if cmd == "version" {
		fmt.Printf("ef %s (%s)\n", version, buildDate)
		return
	}
	if _, ok := commandScreens[cmd]; !ok {
		usage()
	}

	dir := config.Dir()
	cfg, err := config.Load(*cfgPath, dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, logger, session.NewFileStore(dir))
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI(a, os.Stdin, os.Stdout).run(ctx, cmd, flag.Args()[1:]); err != nil {
		logger.Debug("command failed", zap.String("cmd", cmd), zap.Error(err))
		fail(err)
	}
}

// run checks that cmd is reachable from the mounted root and executes it.
func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	screen, ok := commandScreens[cmd]
	if !ok {
		return usageErr("unknown command " + cmd)
	}
	if !c.app.Reachable(screen) {
		if c.app.Root() == app.RootAuth {
			return fmt.Errorf("%s: %w", cmd, errs.ErrUnauthorized)
		}
		return usageErr("already logged in; run logout first")
	}

	switch cmd {
	case "register":
		return c.register(ctx, args)
	case "login":
		return c.login(ctx, args)
	case "logout":
		if err := c.app.Auth.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "ok")
		return nil
	case "whoami":
		return c.whoami()
	case "events":
		return c.events(ctx, args)
	case "event":
		return c.event(ctx, args)
	case "create-event":
		return c.createEvent(ctx, args)
	case "rm-event":
		return c.rmEvent(ctx, args)
	case "map":
		return c.eventMap(ctx, args)
	case "categories":
		return c.categories(ctx)
	case "add-category":
		return c.addCategory(ctx, args)
	case "rename-category":
		return c.renameCategory(ctx, args)
	case "rm-category":
		return c.rmCategory(ctx, args)
	case "locations":
		return c.locations(ctx)
	case "add-location":
		return c.addLocation(ctx, args)
	default: // rm-location
		return c.rmLocation(ctx, args)
	}
}

// ---- auth ----

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	pass := fs.String("password", "", "password")
	_ = fs.Parse(args)

	u, err := c.app.Auth.Register(ctx, *name, *email, *pass)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, u.ID)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email")
	pass := fs.String("password", "", "password")
	_ = fs.Parse(args)

	u, err := c.app.Auth.Login(ctx, *email, *pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "ok: %s\n", u.DisplayName())
	return nil
}

func (c *cli) whoami() error {
	u, err := c.app.Auth.Profile()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s>\n", u.DisplayName(), u.Email)
	return nil
}

// ---- confirmation ----

// confirmer asks on the CLI input; assumeYes skips the prompt.
type confirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func (c confirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	if c.assumeYes {
		return true, nil
	}
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "sim":
		return true, nil
	}
	return false, nil
}

func (c *cli) confirmer(yes bool) confirmer {
	return confirmer{in: c.in, out: c.out, assumeYes: yes}
}

// ---- helpers ----

// emit runs fn holding the output lock so a multi-line block stays whole.
func (c *cli) emit(fn func()) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fn()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		os.Exit(2)
	}
	fmt.Fprintln(os.Stderr, errs.UserMessage(err))
	os.Exit(1)
}
