// Package store persists canonical price records, file audit rows and
// store locations in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/491415/PMCT/internal/records"
)

// PersistenceError wraps a failed storage operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

const uniqueViolation = "23505"

// isDuplicate reports whether err is a unique constraint violation.
func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Options configure the connection pool.
type Options struct {
	MaxConns int32
	Logger   *slog.Logger
}

// Store runs the ingestion's storage contract against a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	q    Queries
	log  *slog.Logger
}

// Open connects the pool and pings it.
func Open(ctx context.Context, dsn string, q Queries, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{pool: pool, q: q, log: log}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) lookupID(ctx context.Context, op, query string, args ...any) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &PersistenceError{Op: op, Err: err}
	}
	return id, true, nil
}

// VendorID resolves a chain name to its id. A missing chain is a
// configuration error, not an absence.
func (s *Store) VendorID(ctx context.Context, name string) (int64, error) {
	id, ok, err := s.lookupID(ctx, "vendor id", s.q.VendorID, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &PersistenceError{Op: "vendor id", Err: fmt.Errorf("chain %q not registered", name)}
	}
	return id, nil
}

// RuleID resolves the pricing rule bound to a chain.
func (s *Store) RuleID(ctx context.Context, vendorID int64) (int64, error) {
	id, ok, err := s.lookupID(ctx, "rule id", s.q.RuleID, vendorID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &PersistenceError{Op: "rule id", Err: fmt.Errorf("no pricing rule for chain %d", vendorID)}
	}
	return id, nil
}

// LocalityID resolves a locality name; ok is false when the locality
// is not in the reference table.
func (s *Store) LocalityID(ctx context.Context, name string) (int64, bool, error) {
	return s.lookupID(ctx, "locality id", s.q.LocalityID, name)
}

// StoreID resolves a store by chain and store code; ok is false for an
// unregistered store.
func (s *Store) StoreID(ctx context.Context, vendorID int64, code string) (int64, bool, error) {
	return s.lookupID(ctx, "store id", s.q.StoreID, vendorID, code)
}

// InsertStore registers a newly observed store location.
func (s *Store) InsertStore(ctx context.Context, loc records.StoreLocation) error {
	effective, err := records.ParseDate(loc.EffectiveOn)
	if err != nil {
		return &PersistenceError{Op: "insert store", Err: err}
	}
	_, err = s.pool.Exec(ctx, s.q.InsertStore,
		loc.ChainID, loc.LocalityID, loc.Address, string(loc.FormFactor), loc.Code, effective)
	if err != nil {
		if isDuplicate(err) {
			s.log.Warn("store already registered", "chain", loc.ChainID, "code", loc.Code)
			return nil
		}
		return &PersistenceError{Op: "insert store", Err: err}
	}
	return nil
}

// InsertFile records a file in INIT status. Re-inserting a file that
// already exists is a no-op with a warning; idempotent re-runs depend
// on it.
func (s *Store) InsertFile(ctx context.Context, f records.FileRecord) error {
	published, err := records.ParseDate(f.PublishedOn)
	if err != nil {
		return &PersistenceError{Op: "insert file", Err: err}
	}
	_, err = s.pool.Exec(ctx, s.q.InsertFile,
		f.RuleID, f.StoreID, f.Name, f.ZipName, f.Format, int(f.Status), published, f.BatchNumber)
	if err != nil {
		if isDuplicate(err) {
			s.log.Warn("file already recorded", "file", f.Name)
			return nil
		}
		return &PersistenceError{Op: "insert file", Err: err}
	}
	return nil
}

// FileStatus returns the id and load status of the file tracked for a
// store and publication date.
func (s *Store) FileStatus(ctx context.Context, storeID int64, date time.Time) (int64, records.Status, bool, error) {
	var (
		id     int64
		status int
	)
	err := s.pool.QueryRow(ctx, s.q.FileStatus, storeID, date).Scan(&id, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, &PersistenceError{Op: "file status", Err: err}
	}
	return id, records.Status(status), true, nil
}

// InsertPrices writes all rows of one file in a single transaction.
// A duplicate row means the file was already loaded: the transaction
// rolls back and zero is reported, matching a skipped file. Any other
// failure also rolls back so a file is never half loaded.
func (s *Store) InsertPrices(ctx context.Context, prices []records.PriceRecord) (int64, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &PersistenceError{Op: "insert prices", Err: err}
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, p := range prices {
		published, err := records.ParseDate(p.Date)
		if err != nil {
			return 0, &PersistenceError{Op: "insert prices", Err: err}
		}
		b.Queue(s.q.InsertPrice,
			p.FileID, p.Name, p.Code, p.Brand, p.NetQuantity, p.Unit,
			p.Retail, p.PerUnit, p.Special, p.SpecialFlag, p.Lowest30, p.Anchor,
			p.Barcode, p.Category, published)
	}

	var total int64
	br := tx.SendBatch(ctx, b)
	for range prices {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			if isDuplicate(err) {
				s.log.Warn("prices already loaded, skipping file", "rows", len(prices))
				return 0, nil
			}
			return 0, &PersistenceError{Op: "insert prices", Err: err}
		}
		total += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, &PersistenceError{Op: "insert prices", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, &PersistenceError{Op: "insert prices", Err: err}
	}
	return total, nil
}

// UpdateFileStatus marks the file loaded after its prices landed.
func (s *Store) UpdateFileStatus(ctx context.Context, storeID int64, filename string, date time.Time) error {
	tag, err := s.pool.Exec(ctx, s.q.UpdateFileStatus, storeID, filename, date)
	if err != nil {
		return &PersistenceError{Op: "update file status", Err: err}
	}
	s.log.Info("file status updated", "file", filename, "rows", tag.RowsAffected())
	return nil
}
