package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/shazow/wifirecover/internal/candidate"
	"github.com/shazow/wifirecover/internal/controller"
	"github.com/shazow/wifirecover/internal/search"
	"github.com/shazow/wifirecover/internal/storage"
	"github.com/shazow/wifirecover/internal/tui"
	"github.com/shazow/wifirecover/wifi"
)

var errPasswordNotFound = errors.New("password not found")

// progressEvery is how many attempts pass between progress lines when the
// number of candidates is not known.
const progressEvery = 10

// stringList is a flag that can be given more than once.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type recoverOptions struct {
	SSID      string
	Interface string

	Dictionaries []string
	Patterns     []string
	Casing       candidate.Casing
	MaxRepeat    int

	Timeout   time.Duration
	Out       string
	Overwrite bool

	QR  bool
	TUI bool
}

// buildSource chains the dictionaries, then the patterns, in flag order.
func buildSource(opts recoverOptions) (*candidate.Chain, error) {
	var sources []candidate.Source
	closeAll := func() {
		candidate.NewChain(candidate.CaseNone, sources...).Close()
	}
	for _, path := range opts.Dictionaries {
		d, err := candidate.Open(path)
		if err != nil {
			closeAll()
			return nil, err
		}
		sources = append(sources, d)
	}
	for _, expr := range opts.Patterns {
		p := candidate.NewPattern(expr, candidate.WithMaxRepeat(opts.MaxRepeat))
		if !p.Valid() {
			closeAll()
			return nil, fmt.Errorf("pattern %q: %w", expr, p.Err())
		}
		sources = append(sources, p)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("give at least one -w dictionary or -pattern: %w", errUsage)
	}
	return candidate.NewChain(opts.Casing, sources...), nil
}

func runRecover(ctx context.Context, w io.Writer, opts recoverOptions, c *controller.Controller, logger *slog.Logger) (search.Result, error) {
	src, err := buildSource(opts)
	if err != nil {
		return search.Result{}, err
	}
	defer src.Close()
	store := storage.ResultFile{Path: opts.Out, Overwrite: opts.Overwrite}

	var res search.Result
	if opts.TUI {
		r, err := tui.Run(ctx, tui.Options{
			Controller: c,
			Store:      store,
			Source:     src,
			SSID:       opts.SSID,
			Timeout:    opts.Timeout,
			Logger:     logger,
		})
		if err != nil || r == nil {
			return search.Result{}, err
		}
		res = *r
	} else {
		if opts.SSID == "" {
			return search.Result{}, fmt.Errorf("recover needs an ssid: %w", errUsage)
		}
		res, err = searchWithProgress(ctx, opts, src, store, c, logger)
		if err != nil && !res.Found() {
			return res, err
		}
		if err != nil {
			// The password was found but could not be stored.
			pterm.Warning.Printfln("%s", err)
		}
	}

	switch res.State {
	case search.Succeeded:
		pterm.Success.Printfln("Password for %q: %s", res.SSID, res.Password)
		if opts.Out != "" {
			pterm.Info.Printfln("Saved to %s", opts.Out)
		}
		if opts.QR {
			id, _ := resolveInterface(ctx, c, opts.Interface)
			enc := wifi.EncryptionAES
			if ap, err := c.FindAccessPoint(ctx, id, res.SSID); err == nil {
				enc = ap.Encryption
			}
			qr, err := GenerateWifiQRCode(res.SSID, res.Password, enc, false)
			if err != nil {
				return res, err
			}
			fmt.Fprint(w, qr)
		}
		return res, nil
	case search.Cancelled:
		pterm.Warning.Println(res.Message)
		return res, nil
	}
	pterm.Error.Printfln("%s after %d attempts", res.Message, res.Attempts)
	return res, errPasswordNotFound
}

func searchWithProgress(ctx context.Context, opts recoverOptions, src *candidate.Chain, store search.Store, c *controller.Controller, logger *slog.Logger) (search.Result, error) {
	id, err := resolveInterface(ctx, c, opts.Interface)
	if err != nil {
		return search.Result{}, err
	}
	ap, err := c.FindAccessPoint(ctx, id, opts.SSID)
	if err != nil {
		return search.Result{}, err
	}
	if !ap.PasswordRequired() {
		pterm.Info.Printfln("%q does not use a password", ap.SSID)
	}

	var bar *pterm.ProgressbarPrinter
	if total := src.Len(); total > 0 {
		bar, _ = pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle(fmt.Sprintf("Recovering %s", ap.SSID)).
			WithShowCount(true).
			WithShowElapsedTime(true).
			WithShowPercentage(true).
			Start()
	} else {
		pterm.Info.Printfln("Recovering %s (%s/%s)", ap.SSID, ap.Authentication, ap.Encryption)
	}

	report := func(ev search.Event) {
		switch ev.Kind {
		case search.EventInfo:
			if bar != nil {
				bar.Increment()
			}
		case search.EventProgress:
			if bar != nil {
				bar.Increment()
				bar.UpdateTitle(fmt.Sprintf("Recovering %s (%.1f/min)", ap.SSID, ev.PerMinute))
			} else if ev.Attempts%progressEvery == 0 {
				pterm.Info.Printfln("%d attempts, %.1f/min, last %q", ev.Attempts, ev.PerMinute, ev.Candidate)
			}
		case search.EventDone:
			if bar != nil {
				bar.Stop()
			}
		}
	}

	engine := search.New(c.Driver(), store,
		search.WithTimeout(opts.Timeout),
		search.WithLogger(logger),
		search.WithEventHandler(report),
	)
	return engine.Run(ctx, &ap, src)
}
