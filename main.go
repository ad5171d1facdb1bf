package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/shazow/wifirecover/internal/candidate"
	"github.com/shazow/wifirecover/internal/config"
	"github.com/shazow/wifirecover/internal/controller"
	wifilog "github.com/shazow/wifirecover/internal/log"
	"github.com/shazow/wifirecover/internal/tui"
)

var (
	// Version is the version of the application. It is set at build time.
	Version string = "dev"
)

const envPrefix = "WIFIRECOVER"

// app holds what the subcommands share once flags are parsed.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	ctrl   *controller.Controller
}

// controller creates the platform driver on first use so commands that never
// touch the hardware work without one.
func (a *app) controller() (*controller.Controller, error) {
	if a.ctrl != nil {
		return a.ctrl, nil
	}
	d, err := GetDriver(a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open wifi driver: %w", err)
	}
	a.ctrl = controller.New(d,
		controller.WithTimeout(a.cfg.Timeout),
		controller.WithThreshold(a.cfg.Threshold),
		controller.WithLogger(a.logger),
	)
	return a.ctrl, nil
}

// withController adapts a run function that needs the controller.
func (a *app) withController(fn func(ctx context.Context, c *controller.Controller) error) func(context.Context) error {
	return func(ctx context.Context) error {
		c, err := a.controller()
		if err != nil {
			return err
		}
		return fn(ctx, c)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

func options() []ff.Option {
	return []ff.Option{ff.WithEnvVarPrefix(envPrefix)}
}

// needArgs checks that exactly n positional arguments were given.
func needArgs(args []string, n int, usage string) error {
	return rangeArgs(args, n, n, usage)
}

func rangeArgs(args []string, lo, hi int, usage string) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("usage: %s: %w", usage, errUsage)
	}
	return nil
}

// argAt returns the i-th positional argument, or "" when it was not given.
func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func newRootCommand(a *app, stdout io.Writer) (*ffcli.Command, *rootFlags) {
	rf := &rootFlags{fs: newFlagSet("wifirecover")}
	rf.configPath = rf.fs.String("config", config.DefaultPath(), "path to settings toml file (env: WIFIRECOVER_CONFIG)")
	rf.theme = rf.fs.String("theme", "", "path to theme toml file (env: WIFIRECOVER_THEME)")
	rf.debug = rf.fs.Bool("debug", false, "write debug logs to "+wifilog.DebugFileName)
	rf.version = rf.fs.Bool("version", false, "display version")

	interfacesFlagSet := newFlagSet("interfaces")
	interfacesFormat := interfacesFlagSet.String("format", "text", "output format (text, json, yaml)")
	interfacesCmd := &ffcli.Command{
		Name:       "interfaces",
		ShortUsage: "wifirecover interfaces [-format text|json|yaml]",
		ShortHelp:  "List wireless interfaces",
		FlagSet:    interfacesFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runInterfaces(ctx, stdout, *interfacesFormat, c)
			})(ctx)
		},
	}

	listFlagSet := newFlagSet("list")
	listJSON := listFlagSet.Bool("json", false, "output in JSON format")
	listFormat := listFlagSet.String("format", "text", "output format (text, json, yaml)")
	listThreshold := listFlagSet.Int("threshold", -1, "hide networks at or below this link quality (default from settings)")
	listScan := listFlagSet.Bool("scan", false, "scan before listing")
	listCmd := &ffcli.Command{
		Name:       "list",
		ShortUsage: "wifirecover list [flags]",
		ShortHelp:  "List visible wifi networks",
		FlagSet:    listFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if *listThreshold >= 0 {
				a.cfg.Threshold = *listThreshold
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			format := *listFormat
			if *listJSON {
				format = "json"
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runList(ctx, stdout, format, *listScan, c)
			})(ctx)
		},
	}

	profilesFlagSet := newFlagSet("profiles")
	profilesJSON := profilesFlagSet.Bool("json", false, "output in JSON format")
	profilesFormat := profilesFlagSet.String("format", "text", "output format (text, json, yaml)")
	profilesInterface := profilesFlagSet.String("interface", "", "interface name or ID")
	profilesCmd := &ffcli.Command{
		Name:       "profiles",
		ShortUsage: "wifirecover profiles [flags]",
		ShortHelp:  "List saved profiles in priority order",
		FlagSet:    profilesFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			format := *profilesFormat
			if *profilesJSON {
				format = "json"
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runProfiles(ctx, stdout, format, *profilesInterface, c)
			})(ctx)
		},
	}

	connectFlagSet := newFlagSet("connect")
	connectPassword := connectFlagSet.String("password", "", "password for the network")
	connectInterface := connectFlagSet.String("interface", "", "interface name or ID")
	connectCmd := &ffcli.Command{
		Name:       "connect",
		ShortUsage: "wifirecover connect [-password pw] <ssid>",
		ShortHelp:  "Connect to a wifi network",
		FlagSet:    connectFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := needArgs(args, 1, "connect <ssid>"); err != nil {
				return err
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runConnect(ctx, stdout, args[0], *connectPassword, *connectInterface, c)
			})(ctx)
		},
	}

	disconnectFlagSet := newFlagSet("disconnect")
	disconnectInterface := disconnectFlagSet.String("interface", "", "interface name or ID")
	disconnectCmd := &ffcli.Command{
		Name:       "disconnect",
		ShortUsage: "wifirecover disconnect [-interface name]",
		ShortHelp:  "Disconnect an interface",
		FlagSet:    disconnectFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runDisconnect(ctx, stdout, *disconnectInterface, c)
			})(ctx)
		},
	}

	importFlagSet := newFlagSet("import")
	importInterface := importFlagSet.String("interface", "", "interface name or ID")
	importCmd := &ffcli.Command{
		Name:       "import",
		ShortUsage: "wifirecover import <profile.xml>",
		ShortHelp:  "Install a profile document",
		FlagSet:    importFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := needArgs(args, 1, "import <profile.xml>"); err != nil {
				return err
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runImport(ctx, stdout, args[0], *importInterface, c)
			})(ctx)
		},
	}

	exportFlagSet := newFlagSet("export")
	exportInterface := exportFlagSet.String("interface", "", "interface name or ID")
	exportCmd := &ffcli.Command{
		Name:       "export",
		ShortUsage: "wifirecover export <name> [file]",
		ShortHelp:  "Write a saved profile as a document",
		FlagSet:    exportFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := rangeArgs(args, 1, 2, "export <name> [file]"); err != nil {
				return err
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runExport(ctx, stdout, args[0], argAt(args, 1), *exportInterface, c)
			})(ctx)
		},
	}

	forgetFlagSet := newFlagSet("forget")
	forgetInterface := forgetFlagSet.String("interface", "", "interface name or ID")
	forgetCmd := &ffcli.Command{
		Name:       "forget",
		ShortUsage: "wifirecover forget <name>",
		ShortHelp:  "Delete a saved profile",
		FlagSet:    forgetFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := needArgs(args, 1, "forget <name>"); err != nil {
				return err
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runForget(ctx, stdout, args[0], *forgetInterface, c)
			})(ctx)
		},
	}

	priorityFlagSet := newFlagSet("priority")
	priorityInterface := priorityFlagSet.String("interface", "", "interface name or ID")
	priorityCmd := &ffcli.Command{
		Name:       "priority",
		ShortUsage: "wifirecover priority <name> up|down|default",
		ShortHelp:  "Move a saved profile in the priority order",
		FlagSet:    priorityFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := needArgs(args, 2, "priority <name> up|down|default"); err != nil {
				return err
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runPriority(ctx, stdout, args[0], args[1], *priorityInterface, c)
			})(ctx)
		},
	}

	radioFlagSet := newFlagSet("radio")
	radioInterface := radioFlagSet.String("interface", "", "interface name or ID")
	radioCmd := &ffcli.Command{
		Name:       "radio",
		ShortUsage: "wifirecover radio on|off",
		ShortHelp:  "Switch the wireless radio",
		FlagSet:    radioFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := needArgs(args, 1, "radio on|off"); err != nil {
				return err
			}
			return a.withController(func(ctx context.Context, c *controller.Controller) error {
				return runRadio(ctx, stdout, args[0], *radioInterface, c)
			})(ctx)
		},
	}

	validateFlagSet := newFlagSet("validate")
	validateEncryption := validateFlagSet.String("encryption", "aes", "encryption (none, wep, tkip, aes)")
	validateCmd := &ffcli.Command{
		Name:       "validate",
		ShortUsage: "wifirecover validate [-encryption aes] <password>",
		ShortHelp:  "Check a password against an encryption's key rules",
		FlagSet:    validateFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := needArgs(args, 1, "validate <password>"); err != nil {
				return err
			}
			return runValidate(stdout, *validateEncryption, args[0])
		},
	}

	formatCmd := &ffcli.Command{
		Name:       "format",
		ShortUsage: "wifirecover format <profile.xml>",
		ShortHelp:  "Pretty-print a profile document",
		FlagSet:    newFlagSet("format"),
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := needArgs(args, 1, "format <profile.xml>"); err != nil {
				return err
			}
			return runFormat(stdout, args[0])
		},
	}

	resultsFlagSet := newFlagSet("results")
	resultsFile := resultsFlagSet.String("file", "", "result file (default from settings)")
	resultsFormat := resultsFlagSet.String("format", "text", "output format (text, json, yaml)")
	resultsCmd := &ffcli.Command{
		Name:       "results",
		ShortUsage: "wifirecover results [-file path]",
		ShortHelp:  "Show recovered passwords",
		FlagSet:    resultsFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			path := *resultsFile
			if path == "" {
				path = a.cfg.ResultPath()
			}
			return runResults(stdout, *resultsFormat, path)
		},
	}

	qrFlagSet := newFlagSet("show-qr")
	qrEncryption := qrFlagSet.String("encryption", "aes", "encryption (none, wep, tkip, aes)")
	qrHidden := qrFlagSet.Bool("hidden", false, "network is hidden")
	qrCmd := &ffcli.Command{
		Name:       "show-qr",
		ShortUsage: "wifirecover show-qr [flags] <ssid> [password]",
		ShortHelp:  "Print a QR code that joins a network",
		FlagSet:    qrFlagSet,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if err := rangeArgs(args, 1, 2, "show-qr <ssid> [password]"); err != nil {
				return err
			}
			return runShowQR(stdout, args[0], argAt(args, 1), *qrEncryption, *qrHidden)
		},
	}

	root := &ffcli.Command{
		ShortUsage: "wifirecover [flags] <subcommand> [args...]",
		FlagSet:    rf.fs,
		Options:    options(),
		Subcommands: []*ffcli.Command{
			newRecoverCommand(a, stdout),
			interfacesCmd, listCmd, profilesCmd,
			connectCmd, disconnectCmd,
			importCmd, exportCmd, forgetCmd, priorityCmd,
			radioCmd, validateCmd, formatCmd, resultsCmd, qrCmd,
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
	return root, rf
}

func newRecoverCommand(a *app, stdout io.Writer) *ffcli.Command {
	fs := newFlagSet("recover")
	var dictionaries, patterns stringList
	fs.Var(&dictionaries, "w", "dictionary file, one password per line (repeatable)")
	fs.Var(&patterns, "pattern", "password pattern such as 'abc[0-9]{4}' (repeatable)")
	casing := fs.String("casing", "", "rewrite candidates: none, lower, upper, title (default from settings)")
	maxRepeat := fs.Int("max-repeat", 0, "upper bound for open pattern repetition (default from settings)")
	timeout := fs.Duration("timeout", 0, "time allowed per connection attempt (default from settings)")
	out := fs.String("out", "", "result file (default from settings)")
	overwrite := fs.Bool("overwrite", false, "truncate the result file instead of appending")
	qr := fs.Bool("qr", false, "print a QR code for the recovered password")
	useTUI := fs.Bool("tui", false, "pick the network and follow the search interactively")
	iface := fs.String("interface", "", "interface name or ID")

	return &ffcli.Command{
		Name:       "recover",
		ShortUsage: "wifirecover recover [-w dict.txt] [-pattern expr] [flags] [ssid]",
		ShortHelp:  "Search candidate passwords for a network",
		FlagSet:    fs,
		Options:    options(),
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: recover [ssid]: %w", errUsage)
			}
			cfg := a.cfg
			var err error
			fs.Visit(func(f *flag.Flag) {
				if err != nil {
					return
				}
				switch f.Name {
				case "casing":
					cfg.Casing, err = candidate.ParseCasing(*casing)
				case "max-repeat":
					cfg.MaxRepeat = *maxRepeat
				case "timeout":
					cfg.Timeout = *timeout
				case "overwrite":
					cfg.Overwrite = *overwrite
				}
			})
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts := recoverOptions{
				Interface:    *iface,
				Dictionaries: dictionaries,
				Patterns:     patterns,
				Casing:       cfg.Casing,
				MaxRepeat:    cfg.MaxRepeat,
				Timeout:      cfg.Timeout,
				Out:          *out,
				Overwrite:    cfg.Overwrite,
				QR:           *qr,
				TUI:          *useTUI,
			}
			if opts.Out == "" {
				opts.Out = cfg.ResultPath()
			}
			if len(args) == 1 {
				opts.SSID = args[0]
			}
			c, err := a.controller()
			if err != nil {
				return err
			}
			_, err = runRecover(ctx, stdout, opts, c, a.logger)
			return err
		},
	}
}

type rootFlags struct {
	fs         *flag.FlagSet
	configPath *string
	theme      *string
	debug      *bool
	version    *bool
}

// setup loads settings, logging and the theme from the parsed root flags.
// The returned closer flushes the debug log.
func (rf *rootFlags) setup(a *app) (io.Closer, error) {
	missingOK := true
	rf.fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			missingOK = false
		}
	})
	cfg, err := config.LoadFile(*rf.configPath, missingOK)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg

	handler, closer, err := wifilog.NewHandler(os.Stderr, *rf.debug)
	if err != nil {
		return nil, err
	}
	wifilog.Init(handler)
	a.logger = slog.Default()

	theme := *rf.theme
	if theme == "" {
		theme = cfg.Theme
	}
	if err := tui.LoadThemeFile(theme); err != nil {
		closer.Close()
		return nil, fmt.Errorf("error loading theme: %w", err)
	}
	return closer, nil
}

// main is the entry point of the application
func main() {
	a := &app{}
	root, rf := newRootCommand(a, os.Stdout)

	if err := root.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if *rf.version {
		fmt.Println(Version)
		os.Exit(0)
	}

	closer, err := rf.setup(a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = root.Run(ctx)
	stop()
	closer.Close()
	if errors.Is(err, flag.ErrHelp) {
		root.FlagSet.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
