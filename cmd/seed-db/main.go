package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
)

type catalogFile struct {
	Items []struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Currency    string          `json:"currency"`
	} `json:"items"`
	Discounts []struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"discounts"`
	Taxes []struct {
		Name       string          `json:"name"`
		Percentage decimal.Decimal `json:"percentage"`
	} `json:"taxes"`
}

type seedData struct {
	items     []catalog.Item
	discounts []pricing.Discount
	taxes     []pricing.Tax
}

func main() {
	var (
		databaseURL string
		catalogPath string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogPath, "catalog", "db/seed/catalog.json", "path to the catalog JSON file, optionally gzipped (.gz)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogPath string) error {
	data, err := readCatalog(catalogPath)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	items := postgres.NewItemRepository(pool)
	prices := postgres.NewPricingRepository(pool)

	// The three tables are independent.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, it := range data.items {
			id, err := items.Upsert(ctx, it)
			if err != nil {
				return err
			}
			slog.Info("upserted item", slog.Int64("id", id), slog.String("name", it.Name))
		}
		return nil
	})
	g.Go(func() error {
		for _, d := range data.discounts {
			id, err := prices.UpsertDiscount(ctx, d)
			if err != nil {
				return err
			}
			slog.Info("upserted discount", slog.Int64("id", id), slog.String("name", d.Name))
		}
		return nil
	})
	g.Go(func() error {
		for _, t := range data.taxes {
			id, err := prices.UpsertTax(ctx, t)
			if err != nil {
				return err
			}
			slog.Info("upserted tax", slog.Int64("id", id), slog.String("name", t.Name))
		}
		return nil
	})
	return g.Wait()
}

// readCatalog parses and validates a catalog file. Files ending in .gz are
// decompressed with pgzip.
func readCatalog(path string) (*seedData, error) {
	slog.Info("reading catalog file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return parseCatalog(r)
}

func parseCatalog(r io.Reader) (*seedData, error) {
	var raw catalogFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse catalog JSON")
	}

	var out seedData
	for _, it := range raw.Items {
		if it.Name == "" {
			return nil, errors.New("item without name")
		}
		if it.Price.IsNegative() {
			return nil, errors.Errorf("item %q: negative price", it.Name)
		}
		cur, err := catalog.ParseCurrency(it.Currency)
		if err != nil {
			return nil, errors.Wrapf(err, "item %q", it.Name)
		}
		out.items = append(out.items, catalog.Item{
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price.Round(2),
			Currency:    cur,
		})
	}
	for _, d := range raw.Discounts {
		if d.Name == "" || d.Amount.IsNegative() {
			return nil, errors.Errorf("invalid discount %q", d.Name)
		}
		out.discounts = append(out.discounts, pricing.Discount{Name: d.Name, Amount: d.Amount.Round(2)})
	}
	for _, t := range raw.Taxes {
		if t.Name == "" || t.Percentage.IsNegative() {
			return nil, errors.Errorf("invalid tax %q", t.Name)
		}
		out.taxes = append(out.taxes, pricing.Tax{Name: t.Name, Percentage: t.Percentage.Round(2)})
	}
	return &out, nil
}
