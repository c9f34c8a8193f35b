// Command cartctl drives the cart client from a terminal: it keeps a local
// cart per profile and mirrors it to the cart API once logged in.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cartsync/internal/config"
	"cartsync/internal/domain"
	"cartsync/internal/logging"
	"cartsync/internal/session"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const usage = `usage: cartctl <command> [args]

commands:
  show                    print the local cart
  add <productId>         add one unit of a product
  remove <productId>      drop a line
  set <productId> <qty>   set a line's quantity (0 removes)
  clear                   empty the cart
  refresh                 replace the local cart with the server cart
  login <token>           start a session and merge carts
  logout                  end the session and clear the local cart
  whoami                  print the session identity
  checkout                check that the cart can go to checkout
  watch                   print the cart whenever it changes
  token <identityId>      mint a development token with the configured secret
`

func main() {
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(logging.Options{Service: "cartctl", Level: level, Format: "console", Output: os.Stderr})

	if err := run(flag.Args(), cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "cartctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, cfg *config.Config, logger zerolog.Logger) error {
	cmd, rest := args[0], args[1:]
	if cmd == "token" {
		return mintToken(rest, cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg.Client, cfg.RedisURL, prometheus.NewRegistry(), logger)
	if err != nil {
		return err
	}
	defer a.close()

	engine := a.engine
	if err := engine.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("resume session")
	}

	switch cmd {
	case "show":
	case "add":
		if len(rest) != 1 {
			return errors.New("add needs a product id")
		}
		product, err := a.remote.FetchProduct(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("look up product: %w", err)
		}
		engine.Add(product)
	case "remove":
		if len(rest) != 1 {
			return errors.New("remove needs a product id")
		}
		engine.Remove(rest[0])
	case "set":
		if len(rest) != 2 {
			return errors.New("set needs a product id and a quantity")
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		engine.SetQuantity(rest[0], n)
	case "clear":
		engine.Clear()
	case "refresh":
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
	case "login":
		if len(rest) != 1 {
			return errors.New("login needs a token")
		}
		identity, err := session.IdentityFromToken(rest[0])
		if err != nil {
			return err
		}
		if err := engine.Login(ctx, identity); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", identity.ID)
	case "logout":
		engine.Logout(ctx)
		fmt.Println("logged out")
		return nil
	case "whoami":
		printIdentity(engine.Identity(), engine.State().String())
		return nil
	case "checkout":
		if err := engine.CheckoutReady(); err != nil {
			return err
		}
		fmt.Println("cart is ready for checkout")
		return nil
	case "watch":
		return watch(ctx, a)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	engine.Wait()
	renderCart(os.Stdout, engine.Cart())
	return nil
}

func watch(ctx context.Context, a *app) error {
	renderCart(os.Stdout, a.engine.Cart())
	unsubscribe := a.engine.Subscribe(func(cart domain.Cart) {
		fmt.Printf("\n-- %s --\n", time.Now().Format(time.TimeOnly))
		renderCart(os.Stdout, cart)
	})
	defer unsubscribe()
	<-ctx.Done()
	return nil
}

func printIdentity(id *domain.Identity, state string) {
	if id == nil {
		fmt.Printf("guest (%s)\n", state)
		return
	}
	fmt.Printf("%s <%s> %s (%s)\n", id.ID, id.Email, id.Name, state)
}

func mintToken(args []string, cfg *config.Config) error {
	if len(args) != 1 {
		return errors.New("token needs an identity id")
	}
	issuer, err := session.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return err
	}
	token, err := issuer.Mint(args[0], session.Claims{}, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
