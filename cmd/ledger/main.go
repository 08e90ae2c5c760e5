// Command ledger inspects placed orders and manages the catalog schema.
package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"broadway/config"
	"broadway/database"
	ordersRepo "broadway/database/repository/orders"
	"broadway/models"
	"broadway/utils"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ledger",
		Usage: "inspect Broadway Pizza orders",
		Before: func(c *cli.Context) error {
			config.LoadConfig()
			utils.InitializeLogger()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the most recent orders",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "number of orders"},
				},
				Action: func(c *cli.Context) error {
					repo := openLedger()
					defer database.ClosePostgres()
					orders, err := repo.ListRecent(c.Context, c.Int("limit"))
					if err != nil {
						return err
					}
					return printOrders(c.App.Writer, orders, config.AppConfig.Currency)
				},
			},
			{
				Name:      "show",
				Usage:     "show one order with its lines",
				ArgsUsage: "<order-id>",
				Action: func(c *cli.Context) error {
					var id int64
					if _, err := fmt.Sscan(c.Args().First(), &id); err != nil || id <= 0 {
						return cli.Exit("usage: ledger show <order-id>", 2)
					}
					repo := openLedger()
					defer database.ClosePostgres()
					order, err := repo.GetByID(c.Context, id)
					if err != nil {
						return err
					}
					return printOrder(c.App.Writer, order, config.AppConfig.Currency)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply the schema and seed migrations",
				Action: func(c *cli.Context) error {
					if err := database.RunMigrations(config.AppConfig.PostgresURL); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "migrations applied")
					return nil
				},
			},
		},
	}
}

func openLedger() ordersRepo.OrderRepository {
	database.InitPostgres()
	return ordersRepo.NewPgOrderRepo(database.PgPool)
}

func printOrders(w io.Writer, orders []models.Order, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLACED\tCUSTOMER\tPHONE\tITEMS\tTOTAL\tSTATUS")
	for _, o := range orders {
		items := 0
		for _, l := range o.Lines {
			items += l.Quantity
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.PlacedAt.Local().Format(time.DateTime), o.CustomerName, models.MaskPhone(o.CustomerPhone),
			items, models.FormatMoney(currency, o.Total), o.Status)
	}
	return tw.Flush()
}

func printOrder(w io.Writer, o *models.Order, currency string) error {
	fmt.Fprintf(w, "Order #%d (%s)\nCustomer: %s, %s\nPlaced: %s\n\n",
		o.ID, o.Status, o.CustomerName, models.MaskPhone(o.CustomerPhone), o.PlacedAt.Local().Format(time.DateTime))
	cart := models.Cart{Lines: o.Lines}
	_, err := fmt.Fprintln(w, cart.Summary(currency))
	return err
}
