package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"recordstore/pkg/catalog/domain/model"
	"recordstore/pkg/catalog/domain/service"
	"recordstore/pkg/catalog/infrastructure/events"
	"recordstore/pkg/catalog/infrastructure/transport"
	"recordstore/pkg/fixture"
)

type config struct {
	GatewayURL string        `envconfig:"GATEWAY_URL" default:"http://localhost:8080"`
	Timeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	UserEmail  string        `envconfig:"USER_EMAIL"`
	AMQPURL    string        `envconfig:"AMQP_URL"`
	StockQueue string        `envconfig:"STOCK_QUEUE" default:"stock-updates"`
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not load .env file")
	}

	var cfg config
	if err := envconfig.Process("recordstore", &cfg); err != nil {
		log.WithError(err).Fatal("failed to read configuration")
	}

	app := &cli.App{
		Name:  "recordstore",
		Usage: "browse and edit the record catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "fetch the catalog and print it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "filter by title, group or year"},
				},
				Action: func(c *cli.Context) error {
					return listAction(c.Context, cfg, c.String("search"))
				},
			},
			{
				Name:      "add",
				Usage:     "add a record to the cart",
				ArgsUsage: "<record id>",
				Action: func(c *cli.Context) error {
					return cartAction(c.Context, cfg, c.Args().First(), true)
				},
			},
			{
				Name:      "remove",
				Usage:     "remove a record from the cart",
				ArgsUsage: "<record id>",
				Action: func(c *cli.Context) error {
					return cartAction(c.Context, cfg, c.Args().First(), false)
				},
			},
			{
				Name:  "watch",
				Usage: "keep the catalog synchronized with stock and cart events",
				Action: func(c *cli.Context) error {
					return watchAction(c.Context, cfg)
				},
			},
			{
				Name:  "serve-fixture",
				Usage: "run a local stand-in for the remote catalog gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: ":8080"},
				},
				Action: func(c *cli.Context) error {
					return serveFixture(c.String("addr"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

type screenDeps struct {
	screen service.CatalogScreen
	stock  *events.StockChannel
	cart   *events.CartChannel
	cartGW *transport.CartGateway
}

func buildScreen(cfg config) screenDeps {
	client := transport.NewClient(cfg.GatewayURL, cfg.Timeout)
	stockCh := events.NewStockChannel()
	cartCh := events.NewCartChannel()
	cartGW := transport.NewCartGateway(client, cartCh)
	screen := service.NewCatalogScreen(
		transport.NewRecordGateway(client),
		transport.NewGroupGateway(client),
		cartGW,
		stockCh,
		consoleReporter{},
	)
	return screenDeps{screen: screen, stock: stockCh, cart: cartCh, cartGW: cartGW}
}

func listAction(ctx context.Context, cfg config, search string) error {
	deps := buildScreen(cfg)
	if err := deps.screen.Refresh(ctx); err != nil {
		return err
	}
	deps.screen.SetSearchText(search)
	printRecords(deps.screen.FilteredRecords())
	return nil
}

func cartAction(ctx context.Context, cfg config, rawID string, add bool) error {
	if cfg.UserEmail == "" {
		log.Warn("USER_EMAIL not set, cart operations are skipped")
		return nil
	}
	var id int
	if _, err := fmt.Sscanf(rawID, "%d", &id); err != nil {
		return fmt.Errorf("invalid record id %q", rawID)
	}

	deps := buildScreen(cfg)
	if err := deps.screen.Refresh(ctx); err != nil {
		return err
	}
	items, err := deps.cartGW.Fetch(ctx, cfg.UserEmail)
	if err != nil {
		return err
	}
	deps.screen.ApplyCartSnapshot(items)

	if add {
		err = deps.screen.AddToCart(ctx, cfg.UserEmail, id)
	} else {
		err = deps.screen.RemoveFromCart(ctx, cfg.UserEmail, id)
	}
	if err != nil {
		return err
	}
	printRecords(deps.screen.FilteredRecords())
	return nil
}

func watchAction(ctx context.Context, cfg config) error {
	deps := buildScreen(cfg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stockSub := deps.stock.Subscribe()
	cartSub := deps.cart.Subscribe()
	go deps.screen.Run(runCtx, stockSub, cartSub)

	if err := deps.screen.Refresh(runCtx); err != nil {
		return err
	}
	if cfg.UserEmail != "" {
		if items, err := deps.cartGW.Fetch(runCtx, cfg.UserEmail); err == nil {
			deps.cart.PublishSnapshot(items)
		} else {
			log.WithError(err).Warn("could not seed cart contents")
		}
	}

	if cfg.AMQPURL != "" {
		feed, err := events.NewStockFeed(cfg.AMQPURL, cfg.StockQueue, deps.stock)
		if err != nil {
			return err
		}
		defer feed.Close()
		go func() {
			if err := feed.Run(runCtx); err != nil && runCtx.Err() == nil {
				log.WithError(err).Error("stock feed stopped")
			}
		}()
	}

	printRecords(deps.screen.FilteredRecords())
	waitForKillSignal(getKillSignalChan())
	return nil
}

func serveFixture(addr string) error {
	log.WithField("addr", addr).Info("starting fixture gateway")
	srv := &http.Server{Addr: addr, Handler: fixture.Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()
	waitForKillSignal(getKillSignalChan())
	return srv.Shutdown(context.Background())
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func waitForKillSignal(killSignalChan <-chan os.Signal) {
	killSignal := <-killSignalChan
	switch killSignal {
	case os.Interrupt:
		log.Info("Got SIGINT...")
	case syscall.SIGTERM:
		log.Info("Got SIGTERM...")
	}
}

func printRecords(records []model.Record) {
	for _, r := range records {
		year := ""
		if r.YearOfPublication != nil {
			year = fmt.Sprintf("%d", *r.YearOfPublication)
		}
		cart := ""
		if r.InCart {
			cart = fmt.Sprintf(" [in cart x%d]", r.Amount)
		}
		fmt.Printf("%4d  %-30s %-20s %4s  %8.2f  stock=%d%s\n",
			r.ID, r.Title, r.GroupName, year, r.Price, r.Stock, cart)
	}
}

type consoleReporter struct{}

func (consoleReporter) Report(message string) {
	fmt.Fprintln(os.Stderr, message)
}
