// Command serial-ingest loads back-office serial registration feeds into the
// serials table. Feeds are gzip-compressed CSV files, one sale per line:
//
//	serial_number,product_id,customer_id,invoice_number,purchase_date
//
// Feeds overlap heavily between exports, so a bloom filter deduplicates
// within the run before records reach the database; the upsert makes the
// ingest idempotent regardless.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/voltkart/voltkart/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	batchSize     = 1000
	dateLayout    = "2006-01-02"
)

const upsertSerialSQL = `INSERT INTO serials
		(serial_number, product_id, customer_id, invoice_number, purchase_date)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (serial_number) DO UPDATE SET
		product_id = EXCLUDED.product_id,
		customer_id = EXCLUDED.customer_id,
		invoice_number = EXCLUDED.invoice_number,
		purchase_date = EXCLUDED.purchase_date`

// saleLine is one parsed feed record.
type saleLine struct {
	serial       string
	productID    string
	customerID   string
	invoice      string
	purchaseDate time.Time
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.csv.gz feed files")
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
		slog.Error("serial ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("serial ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.csv.gz feed files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("ingesting feeds", slog.Int("files", len(files)))

	// Feeds are streamed concurrently into one writer. The bloom filter
	// drops serials already handled this run; a false positive only skips a
	// redundant upsert, never loses a new record that was not also inserted
	// by an earlier duplicate line.
	var (
		mu     sync.Mutex
		seen   = bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		lines  = make(chan saleLine, batchSize)
		writer = make(chan error, 1)
	)

	go func() {
		writer <- writeSerials(ctx, pool, lines)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			return streamFeed(gctx, f, func(l saleLine) bool {
				mu.Lock()
				dup := seen.TestOrAddString(l.serial)
				mu.Unlock()
				if dup {
					return true
				}
				select {
				case lines <- l:
					return true
				case <-gctx.Done():
					return false
				}
			})
		})
	}

	err = g.Wait()
	close(lines)
	if werr := <-writer; werr != nil && err == nil {
		err = werr
	}
	return err
}

// streamFeed parses one gzipped feed, calling fn per valid record. Malformed
// lines are logged and skipped so one bad export row cannot sink the run.
func streamFeed(ctx context.Context, path string, fn func(saleLine) bool) error {
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

	var count, skipped uint64
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		count++
		if count%progressEvery == 0 {
			slog.Info("ingest progress", slog.String("file", filepath.Base(path)), slog.Uint64("lines", count))
		}

		l, err := parseLine(scanner.Text())
		if err != nil {
			skipped++
			slog.Warn("skipping malformed line",
				slog.String("file", filepath.Base(path)),
				slog.Uint64("line", count),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !fn(l) {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("feed complete",
		slog.String("file", filepath.Base(path)),
		slog.Uint64("lines", count),
		slog.Uint64("skipped", skipped),
	)
	return nil
}

func parseLine(line string) (saleLine, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return saleLine{}, errors.Errorf("expected 5 fields, got %d", len(fields))
	}

	serial := strings.TrimSpace(fields[0])
	if serial == "" {
		return saleLine{}, errors.New("empty serial number")
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(fields[4]))
	if err != nil {
		return saleLine{}, errors.Wrap(err, "parse purchase date")
	}

	return saleLine{
		serial:       serial,
		productID:    strings.TrimSpace(fields[1]),
		customerID:   strings.TrimSpace(fields[2]),
		invoice:      strings.TrimSpace(fields[3]),
		purchaseDate: date,
	}, nil
}

// writeSerials drains the channel, flushing upserts in batches.
func writeSerials(ctx context.Context, pool *pgxpool.Pool, lines <-chan saleLine) error {
	var (
		batch   pgx.Batch
		written int
	)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, &batch).Close(); err != nil {
			return errors.Wrap(err, "flush batch")
		}
		written += batch.Len()
		batch = pgx.Batch{}
		slog.Info("write progress", slog.Int("written", written))
		return nil
	}

	for l := range lines {
		batch.Queue(upsertSerialSQL, l.serial, l.productID, l.customerID, l.invoice, l.purchaseDate)
		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				// Keep draining so the producers can finish and shut down.
				for range lines {
				}
				return err
			}
		}
	}
	return flush()
}
