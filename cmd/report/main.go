// Command report prints the inventory, its total value and the low-stock
// set once, using the admin credentials from the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/rl1809/stock-keeper/internal/app"
	"github.com/rl1809/stock-keeper/internal/config"
	"github.com/rl1809/stock-keeper/internal/core/domain"
)

func main() {
	threshold := flag.Int("threshold", -1, "low stock threshold (default LOW_STOCK_THRESHOLD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *threshold >= 0 {
		cfg.LowStockThreshold = *threshold
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.Build(ctx, cfg, "report")
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	reportErr := run(ctx, a, cfg, os.Stdout)
	closeErr := a.Close(ctx)
	if reportErr != nil {
		log.Fatalf("report failed: %v", reportErr)
	}
	if closeErr != nil {
		log.Fatalf("close failed: %v", closeErr)
	}
}

func run(ctx context.Context, a *app.App, cfg config.Config, out io.Writer) error {
	session := a.NewSession()
	defer session.Terminate()

	if err := session.Login(ctx, domain.RoleAdmin, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}
	role, err := session.Role()
	if err != nil {
		return err
	}

	records, err := a.Gate.List(ctx, role)
	if err != nil {
		return err
	}
	total, err := a.Gate.TotalValue(ctx, role)
	if err != nil {
		return err
	}
	low, err := a.Gate.LowStockAlert(ctx, role, a.LowStockThreshold)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-12s %-24s %8s %12s %14s\n", "ID", "NAME", "QTY", "PRICE", "VALUE")
	for _, r := range records {
		fmt.Fprintf(out, "%-12s %-24s %8d %12s %14s\n", r.ID, r.Name, r.Quantity, r.Price.StringFixed(2), r.Value().StringFixed(2))
	}
	fmt.Fprintf(out, "\nProducts: %d\n", len(records))
	fmt.Fprintf(out, "Total Inventory Value: %s\n", total.StringFixed(2))

	fmt.Fprintf(out, "Low stock (< %d): %d\n", a.LowStockThreshold, len(low))
	for _, r := range low {
		fmt.Fprintf(out, "  %s %s (%d)\n", r.ID, r.Name, r.Quantity)
	}
	return nil
}
