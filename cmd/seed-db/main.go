// Command seed-db loads the catalog, warranty slabs, and a development API
// key into the database. The catalog comes from a JSON file so staging and
// demo environments can carry different product sets.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/voltkart/voltkart/internal/storage/postgres"
)

type slabJSON struct {
	Name        string          `json:"name"`
	MinMonths   int             `json:"min_months"`
	MaxMonths   *int            `json:"max_months"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

type productJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	MRP             decimal.Decimal `json:"mrp"`
	PriceB2C        decimal.Decimal `json:"price_b2c"`
	PriceB2B        decimal.Decimal `json:"price_b2b"`
	GuaranteeMonths int             `json:"guarantee_months"`
	WarrantyMonths  int             `json:"warranty_months"`
	Slabs           []slabJSON      `json:"slabs"`
}

const upsertProductSQL = `INSERT INTO products
		(id, name, category, mrp_price, selling_price_b2c, selling_price_b2b,
		 guarantee_months, warranty_months)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		category = EXCLUDED.category,
		mrp_price = EXCLUDED.mrp_price,
		selling_price_b2c = EXCLUDED.selling_price_b2c,
		selling_price_b2b = EXCLUDED.selling_price_b2b,
		guarantee_months = EXCLUDED.guarantee_months,
		warranty_months = EXCLUDED.warranty_months`

const upsertSlabSQL = `INSERT INTO warranty_slabs
		(product_id, slab_name, min_months, max_months, discount_pct)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (product_id, min_months) DO UPDATE SET
		slab_name = EXCLUDED.slab_name,
		max_months = EXCLUDED.max_months,
		discount_pct = EXCLUDED.discount_pct`

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		key_hash = EXCLUDED.key_hash,
		name = EXCLUDED.name,
		scopes = EXCLUDED.scopes,
		active = EXCLUDED.active`

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
		demoData     bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or VOLT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or VOLT_API_KEY_PEPPER env)")
	flag.BoolVar(&demoData, "demo-data", false, "also seed demo serials and a replacement record")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("VOLT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or VOLT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("VOLT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper, demoData); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string, demoData bool) error {
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

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	if demoData {
		if err := seedDemoData(ctx, pool); err != nil {
			return errors.Wrap(err, "seed demo data")
		}
	}

	return nil
}

const upsertDemoSerialSQL = `INSERT INTO serials
		(serial_number, product_id, customer_id, invoice_number, purchase_date)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (serial_number) DO UPDATE SET
		product_id = EXCLUDED.product_id,
		customer_id = EXCLUDED.customer_id,
		invoice_number = EXCLUDED.invoice_number,
		purchase_date = EXCLUDED.purchase_date`

const insertDemoReplacementSQL = `INSERT INTO replacements
		(old_serial, new_serial, customer_id, replacement_type, new_invoice_number, replaced_at)
	SELECT $1, $2, $3, $4, $5, $6
	WHERE NOT EXISTS (SELECT 1 FROM replacements WHERE old_serial = $1 AND new_serial = $2)`

// seedDemoData writes a handful of serials covering the interesting warranty
// positions: inside the guarantee window, inside a slab, and replaced.
func seedDemoData(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo serials")

	now := time.Now()
	serials := []struct {
		serial    string
		productID string
		invoice   string
		purchased time.Time
	}{
		{"SR-DEMO-FRESH", "bat-exide-150", "INV-DEMO-1", now.AddDate(0, -2, 0)},
		{"SR-DEMO-SLAB", "bat-exide-150", "INV-DEMO-2", now.AddDate(0, -20, 0)},
		{"SR-DEMO-OLD", "bat-amaron-35", "INV-DEMO-3", now.AddDate(-4, 0, 0)},
	}
	for _, s := range serials {
		if _, err := pool.Exec(ctx, upsertDemoSerialSQL,
			s.serial, s.productID, "cust-demo", s.invoice, s.purchased,
		); err != nil {
			return errors.Wrapf(err, "upsert serial %s", s.serial)
		}
	}

	if _, err := pool.Exec(ctx, insertDemoReplacementSQL,
		"SR-DEMO-OLD", "SR-DEMO-OLD-R1", "cust-demo", "warranty", "INV-DEMO-4", now.AddDate(-1, 0, 0),
	); err != nil {
		return errors.Wrap(err, "insert demo replacement")
	}

	slog.Info("seeded demo serials", slog.Int("count", len(serials)))
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Category, p.MRP, p.PriceB2C, p.PriceB2B,
			p.GuaranteeMonths, p.WarrantyMonths,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		for _, s := range p.Slabs {
			if _, err := pool.Exec(ctx, upsertSlabSQL,
				p.ID, s.Name, s.MinMonths, s.MaxMonths, s.DiscountPct,
			); err != nil {
				return errors.Wrapf(err, "upsert slab %s/%s", p.ID, s.Name)
			}
		}

		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int("slabs", len(p.Slabs)),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default development key", []string{"b2b"}, true,
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
