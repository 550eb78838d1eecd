// Command szk is a terminal zkLogin client for the Sui ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/and161185/suizk/internal/app"
	"github.com/and161185/suizk/internal/balance"
	"github.com/and161185/suizk/internal/config"
	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/idtoken"
	"github.com/and161185/suizk/internal/model"
	grpcserver "github.com/and161185/suizk/internal/server/grpc"
	"github.com/and161185/suizk/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const usageText = `szk - zkLogin client for Sui
Usage:
  szk [global flags] <cmd> [args]

Commands:
  version
  login begin    [-provider Google]     (prints the provider URL)
  login complete -url <redirect URL>    (URL the browser landed on)
  accounts
  balances       [-agent HOST:PORT]
  send           [-from <address>]      (enter the game with a zkLogin signature)
  game
  faucet         [-to <address>]        (devnet only)
  clear

Global flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("szk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	cfg, err := config.Parse(fs, args, os.LookupEnv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		fmt.Fprintf(stdout, "szk %s (%s)\n", version, buildDate)
		return 0
	}

	log, err := app.NewLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	a, err := app.Build(ctx, cfg, log, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	defer a.Close()

	c := &cli{app: a, out: stdout, errOut: stderr}
	switch cmd {
	case "login":
		err = c.login(ctx, rest)
	case "accounts":
		err = c.accounts(ctx)
	case "balances":
		err = c.balances(ctx, rest)
	case "send":
		err = c.send(ctx, rest)
	case "game":
		err = c.game(ctx)
	case "faucet":
		err = c.faucet(ctx, rest)
	case "clear":
		err = c.clear(ctx)
	default:
		fs.Usage()
		return 2
	}
	if err != nil {
		return fail(stderr, err)
	}
	return 0
}

func fail(w io.Writer, err error) int {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(w, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		return 1
	}
	fmt.Fprintln(w, err)
	return 1
}

type cli struct {
	app    *app.App
	out    io.Writer
	errOut io.Writer
}

func shortAddr(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-6:]
}

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: login begin|complete")
	}
	switch args[0] {
	case "begin":
		fs := flag.NewFlagSet("login begin", flag.ContinueOnError)
		fs.SetOutput(c.errOut)
		provider := fs.String("provider", string(model.ProviderGoogle), "OpenID provider")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		p, err := c.app.Login.Begin(ctx, model.Provider(*provider))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, p.URL)
		fmt.Fprintf(c.errOut, "Open the URL above, then run: szk login complete -url '<redirect URL>'\n(valid until epoch %d)\n", p.MaxEpoch)
		return nil

	case "complete":
		fs := flag.NewFlagSet("login complete", flag.ContinueOnError)
		fs.SetOutput(c.errOut)
		rawURL := fs.String("url", "", "redirect URL including the #id_token fragment")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		res, err := c.app.Login.Complete(ctx, *rawURL)
		if err != nil {
			return err
		}
		c.app.Log.Debug("redirect consumed", zapURL(*rawURL))
		if res.Outcome != service.OutcomeCompleted {
			fmt.Fprintln(c.errOut, "Login not completed.")
			return nil
		}
		fmt.Fprintln(c.out, res.Account.UserAddr)
		return nil
	}
	return fmt.Errorf("unknown login step %q", args[0])
}

func (c *cli) accounts(ctx context.Context) error {
	list, err := c.app.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(c.errOut, "No accounts.")
		return nil
	}
	for _, a := range list {
		fmt.Fprintf(c.out, "%s\t%s\tmaxEpoch=%d\t%s\n",
			shortAddr(a.UserAddr), a.Provider, a.MaxEpoch, c.app.Config.ExplorerAddressURL(a.UserAddr))
	}
	return nil
}

func (c *cli) balances(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balances", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	agent := fs.String("agent", "", "query a running szk-agent instead of the ledger")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var bals []model.Balance
	if *agent != "" {
		cc, err := grpc.NewClient(*agent, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return err
		}
		defer cc.Close()
		resp, err := grpcserver.NewAgentClient(cc).Balances(ctx, &grpcserver.BalancesRequest{})
		if err != nil {
			return err
		}
		for _, b := range resp.Balances {
			bals = append(bals, model.Balance{Address: b.Address, Mist: b.Mist})
		}
	} else {
		addrs, err := c.app.Addresses(ctx)
		if err != nil {
			return err
		}
		got := c.app.Refresher.Refresh(ctx, addrs...)
		for _, a := range addrs {
			if v, ok := got[a]; ok {
				bals = append(bals, model.Balance{Address: a, Mist: v})
			} else {
				fmt.Fprintf(c.out, "%s\t?\n", shortAddr(a))
			}
		}
	}
	for _, b := range bals {
		fmt.Fprintf(c.out, "%s\t%s SUI\n", shortAddr(b.Address), balance.FormatSUI(b.Mist))
	}
	return nil
}

func (c *cli) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	from := fs.String("from", "", "sender account (newest when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	acct, err := c.app.Account(ctx, *from)
	if err != nil {
		return err
	}
	res, err := c.app.Tx.Send(ctx, acct, c.app.Game.EnterCall(acct.UserAddr))
	if errors.Is(err, errs.ErrExpiredCredential) {
		return fmt.Errorf("%w: log in again to get a fresh ephemeral key", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, res.Digest)
	fmt.Fprintln(c.errOut, c.app.Config.ExplorerTxURL(res.Digest))
	return nil
}

func (c *cli) game(ctx context.Context) error {
	seed, err := c.app.Game.Randomness(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "object\t%s\nseed\t%d\n", c.app.Game.ObjectID(), seed)
	addrs, err := c.app.Addresses(ctx)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		ok, err := c.app.Game.IsPlayer(ctx, a)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s\tplayer=%t\n", shortAddr(a), ok)
	}
	return nil
}

func (c *cli) faucet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("faucet", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	to := fs.String("to", "", "recipient account (newest when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.app.Faucet == nil {
		return fmt.Errorf("no faucet on %s", c.app.Config.Network)
	}
	acct, err := c.app.Account(ctx, *to)
	if err != nil {
		return err
	}
	if err := c.app.Faucet.Request(ctx, acct.UserAddr); err != nil {
		return err
	}
	fmt.Fprintf(c.errOut, "Faucet request sent for %s\n", shortAddr(acct.UserAddr))
	return nil
}

func (c *cli) clear(ctx context.Context) error {
	if err := c.app.Store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.errOut, "Session state cleared.")
	return nil
}

// zapURL logs a redirect URL without its token-bearing fragment.
func zapURL(raw string) zap.Field {
	return zap.String("url", idtoken.StripFragment(raw))
}
