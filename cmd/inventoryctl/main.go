// inventoryctl runs ledger maintenance jobs outside the API server.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/inventoryctl migrate
//	go run ./cmd/inventoryctl next-id purchase_order
//	go run ./cmd/inventoryctl reconcile
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/models"
	"github.com/simsfs/inventory_backend/utils"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "inventoryctl",
		Usage: "maintenance commands for the inventory ledger",
		Before: func(c *cli.Context) error {
			config.ConnectDatabaseWithRetry()
			if config.GetDB() == nil {
				return cli.Exit("database not initialized. Set DB_* env vars.", 1)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "create or update tables and seed status values",
				Action: func(c *cli.Context) error {
					if err := models.MigrateTable(); err != nil {
						return err
					}
					if err := models.SeedReferenceData(commandContext(), nil); err != nil {
						return err
					}
					logger().Info("migration completed")
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "add reference data values",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "item-type"},
					&cli.StringSliceFlag{Name: "category"},
					&cli.StringSliceFlag{Name: "subcategory"},
					&cli.StringSliceFlag{Name: "county"},
					&cli.StringSliceFlag{Name: "town"},
					&cli.StringSliceFlag{Name: "payment-mode"},
				},
				Action: func(c *cli.Context) error {
					extra := map[models.DimensionKind][]string{
						models.DimensionItemType:        c.StringSlice("item-type"),
						models.DimensionItemCategory:    c.StringSlice("category"),
						models.DimensionItemSubcategory: c.StringSlice("subcategory"),
						models.DimensionCounty:          c.StringSlice("county"),
						models.DimensionTown:            c.StringSlice("town"),
						models.DimensionPaymentMode:     c.StringSlice("payment-mode"),
					}
					if err := models.SeedReferenceData(commandContext(), extra); err != nil {
						return err
					}
					logger().Info("reference data seeded")
					return nil
				},
			},
			{
				Name:      "next-id",
				Usage:     "print the next identifier for an entity class",
				ArgsUsage: "<entity>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit(fmt.Sprintf("expected one entity, one of %v", models.AllEntityClasses), 2)
					}
					id, err := models.NextId(commandContext(), models.EntityClass(c.Args().First()))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, id)
					return nil
				},
			},
			{
				Name:  "recalculate-statuses",
				Usage: "re-derive payment and delivery status for every order",
				Action: func(c *cli.Context) error {
					n, err := models.RecalculateAllStatuses(commandContext())
					if err != nil {
						return err
					}
					logger().WithFields(logrus.Fields{"orders": n}).Info("statuses recalculated")
					return nil
				},
			},
			{
				Name:  "renumber-details",
				Usage: "rewrite detail identifiers into the configured scheme",
				Action: func(c *cli.Context) error {
					n, err := models.RenumberDetailIds(commandContext())
					if err != nil {
						return err
					}
					logger().WithFields(logrus.Fields{
						"details": n,
						"scheme":  config.GetDetailIdScheme(),
					}).Info("detail ids renumbered")
					return nil
				},
			},
			{
				Name:  "reconcile",
				Usage: "compare stored aggregates with their source rows",
				Action: func(c *cli.Context) error {
					cid, findings, err := models.RunReconciliationChecks(commandContext())
					if err != nil {
						return err
					}
					for _, f := range findings {
						fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%s\n", f.CheckType, f.EntityType, f.EntityId, f.Details)
					}
					logger().WithFields(logrus.Fields{
						"correlation_id": cid,
						"findings":       len(findings),
					}).Info("reconciliation completed")
					if len(findings) > 0 {
						return cli.Exit("", 3)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger().Error(err.Error())
		os.Exit(1)
	}
}

func commandContext() context.Context {
	ctx := utils.SetUsernameInContext(context.Background(), "inventoryctl")
	return ctx
}

func logger() *logrus.Logger {
	return config.GetLogger()
}
