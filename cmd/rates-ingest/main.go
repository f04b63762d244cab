// Command rates-ingest loads daily wholesale market-rate feeds and refreshes
// catalog reference prices. Each mandi source publishes a gzipped CSV of
// product quotes; a quote only counts when the product is quoted by at least
// two sources, which filters out one-off typos in any single feed. Locked
// order-line prices are never touched.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/freshmandi/supply-api/internal/domain/product"
	"github.com/freshmandi/supply-api/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	numSources    = 3
	progressEvery = 100_000
)

// quote is one product rate from one source feed.
type quote struct {
	price decimal.Decimal
	seen  uint
}

// sourceResult holds the quotes one source contributed during pass 2,
// restricted to products that another source also appears to carry.
type sourceResult struct {
	quotes map[string]quote
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing ratesN.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("rates ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("rates ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numSources)
	for i := range numSources {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("rates%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build one bloom filter of product ids per source, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("sources", numSources))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: collect quotes for products quoted by 2+ sources.
	slog.Info("pass 2: collecting corroborated quotes")

	rates, err := collectRates(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "collect rates")
	}

	slog.Info("corroborated products found", slog.Int("count", len(rates)))

	if len(rates) == 0 {
		slog.Info("no rates to apply")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := applyRates(ctx, postgres.NewProductRepository(pool), rates); err != nil {
		return errors.Wrap(err, "apply rates")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per source feed, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForSource(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForSource(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			id, _, ok := parseQuoteLine(line)
			if !ok {
				return
			}
			filter.AddString(id)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("source", idx+1),
					slog.Uint64("quotes", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for source %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("source", idx+1),
			slog.Uint64("total_quotes", count),
		)

		filters[idx] = filter
		return nil
	}
}

// collectRates re-streams each feed and keeps quotes whose product id also
// appears in another source's bloom filter. The merged result averages the
// per-source quotes of every product corroborated by 2 or more sources.
func collectRates(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]decimal.Decimal, error) {
	results := make([]sourceResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(collectQuotesFromSource(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-source quotes: sum prices and OR source bitmasks.
	type merged struct {
		sum  decimal.Decimal
		n    int64
		seen uint
	}
	all := make(map[string]*merged)
	for _, r := range results {
		for id, q := range r.quotes {
			m, ok := all[id]
			if !ok {
				m = &merged{sum: decimal.Zero}
				all[id] = m
			}
			m.sum = m.sum.Add(q.price)
			m.n++
			m.seen |= q.seen
		}
	}

	rates := make(map[string]decimal.Decimal)
	for id, m := range all {
		if bits.OnesCount(m.seen) < 2 {
			continue
		}
		rates[id] = m.sum.Div(decimal.NewFromInt(m.n)).Round(2)
	}

	return rates, nil
}

func collectQuotesFromSource(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []sourceResult,
) func() error {
	return func() error {
		quotes := make(map[string]quote)
		sourceBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			id, price, ok := parseQuoteLine(line)
			if !ok {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("source", idx+1),
					slog.Uint64("quotes", count),
				)
			}

			// Keep only quotes another source appears to corroborate.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(id) {
					// Last quote per product wins within one feed.
					quotes[id] = quote{price: price, seen: sourceBit}
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan source %d for quotes", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("source", idx+1),
			slog.Uint64("total_quotes", count),
			slog.Int("kept", len(quotes)),
		)

		results[idx] = sourceResult{quotes: quotes}
		return nil
	}
}

// parseQuoteLine splits a "product_id,price" feed line. Malformed lines and
// non-positive prices are dropped.
func parseQuoteLine(line string) (id string, price decimal.Decimal, ok bool) {
	idPart, pricePart, found := strings.Cut(line, ",")
	if !found {
		return "", decimal.Zero, false
	}
	id = strings.TrimSpace(idPart)
	if id == "" {
		return "", decimal.Zero, false
	}
	price, err := decimal.NewFromString(strings.TrimSpace(pricePart))
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		return "", decimal.Zero, false
	}
	return id, price, true
}

// streamGzFile opens a gzip-compressed feed and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// applyRates writes the corroborated rates to the catalog. Products absent
// from the catalog are skipped; feeds quote far more produce than we stock.
func applyRates(ctx context.Context, repo *postgres.ProductRepository, rates map[string]decimal.Decimal) error {
	slog.Info("applying rates", slog.Int("count", len(rates)))

	var applied, skipped int
	for id, price := range rates {
		err := repo.UpdateReferencePrice(ctx, id, price)
		switch {
		case errors.Is(err, product.ErrNotFound):
			skipped++
		case err != nil:
			return errors.Wrapf(err, "update rate for %s", id)
		default:
			applied++
		}
	}

	slog.Info("rates applied", slog.Int("applied", applied), slog.Int("skipped", skipped))

	return nil
}
