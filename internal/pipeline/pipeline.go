// Package pipeline drives one chain's ingestion for one publication
// date: wait for the listing, resolve the manifest, then fetch,
// normalize, validate and persist every file, tracking per-file load
// status so re-runs never double-insert.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/491415/PMCT/internal/adapters"
	"github.com/491415/PMCT/internal/encfix"
	"github.com/491415/PMCT/internal/filemeta"
	"github.com/491415/PMCT/internal/metrics"
	"github.com/491415/PMCT/internal/normalize"
	"github.com/491415/PMCT/internal/records"
	"github.com/491415/PMCT/internal/tabular"
	"github.com/491415/PMCT/internal/vendors"
)

// Storage is the persistence contract the pipeline runs against.
type Storage interface {
	VendorID(ctx context.Context, name string) (int64, error)
	RuleID(ctx context.Context, vendorID int64) (int64, error)
	LocalityID(ctx context.Context, name string) (int64, bool, error)
	StoreID(ctx context.Context, vendorID int64, code string) (int64, bool, error)
	InsertStore(ctx context.Context, loc records.StoreLocation) error
	InsertFile(ctx context.Context, f records.FileRecord) error
	FileStatus(ctx context.Context, storeID int64, date time.Time) (int64, records.Status, bool, error)
	InsertPrices(ctx context.Context, prices []records.PriceRecord) (int64, error)
	UpdateFileStatus(ctx context.Context, storeID int64, filename string, date time.Time) error
}

// Options wire one chain run.
type Options struct {
	Desc    vendors.Descriptor
	Adapter adapters.SourceAdapter
	Store   Storage
	// Prober, when set, gates the run on the listing page answering.
	Prober  *adapters.Prober
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// OutDir is the root of the local audit tree; empty disables
	// persisting fetched copies.
	OutDir string
}

// Summary is the outcome of one chain run.
type Summary struct {
	Vendor           string
	Date             string
	FilesResolved    int
	FilesLoaded      int
	FilesSkipped     int
	RowsInserted     int64
	RowsRejected     int
	StoresRegistered int
}

// Pipeline ingests one chain.
type Pipeline struct {
	desc    vendors.Descriptor
	adapter adapters.SourceAdapter
	store   Storage
	prober  *adapters.Prober
	metrics *metrics.Metrics
	log     *slog.Logger
	outDir  string
}

// New builds a pipeline from options.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		desc:    opts.Desc,
		adapter: opts.Adapter,
		store:   opts.Store,
		prober:  opts.Prober,
		metrics: opts.Metrics,
		log:     log.With("vendor", opts.Desc.Name),
		outDir:  opts.OutDir,
	}
}

// Run ingests the chain's files for the given publication date. The
// first failing file aborts the run; already-loaded and unresolvable
// files are skipped, not failures. The returned summary is valid even
// on error.
func (p *Pipeline) Run(ctx context.Context, date time.Time) (Summary, error) {
	start := time.Now()
	dateStr := date.Format(records.DateLayout)
	sum := Summary{Vendor: p.desc.Name, Date: dateStr}
	defer func() {
		if p.metrics != nil {
			p.metrics.RunDuration.WithLabelValues(p.desc.Name).Observe(time.Since(start).Seconds())
		}
	}()

	if p.prober != nil {
		if err := p.prober.Wait(ctx, p.desc.ListURL); err != nil {
			return sum, fmt.Errorf("%s listing: %w", p.desc.Name, err)
		}
	}

	vendorID, err := p.store.VendorID(ctx, p.desc.Name)
	if err != nil {
		return sum, err
	}
	ruleID, err := p.store.RuleID(ctx, vendorID)
	if err != nil {
		return sum, err
	}

	entries, err := p.adapter.Resolve(ctx, date)
	if err != nil {
		return sum, err
	}
	sum.FilesResolved = len(entries)
	p.log.Info("manifest resolved", "date", dateStr, "files", len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := p.processFile(ctx, vendorID, ruleID, date, entry, &sum); err != nil {
			p.countFile("failed")
			return sum, fmt.Errorf("%s file %s: %w", p.desc.Name, entry.Filename, err)
		}
	}

	p.log.Info("run complete",
		"date", dateStr,
		"files_resolved", sum.FilesResolved,
		"files_loaded", sum.FilesLoaded,
		"files_skipped", sum.FilesSkipped,
		"rows_inserted", sum.RowsInserted,
		"rows_rejected", sum.RowsRejected,
		"stores_registered", sum.StoresRegistered,
	)
	return sum, nil
}

func (p *Pipeline) countFile(outcome string) {
	if p.metrics != nil {
		p.metrics.FilesProcessed.WithLabelValues(p.desc.Name, outcome).Inc()
	}
}

func (p *Pipeline) processFile(ctx context.Context, vendorID, ruleID int64, date time.Time, entry adapters.ManifestEntry, sum *Summary) error {
	dateStr := date.Format(records.DateLayout)

	storeCode := filemeta.StoreCode(p.desc.Name, entry.Filename)
	if storeCode == "" {
		p.log.Warn("no store code in file name, skipping", "file", entry.Filename)
		sum.FilesSkipped++
		p.countFile("skipped")
		return nil
	}

	storeID, ok, err := p.store.StoreID(ctx, vendorID, storeCode)
	if err != nil {
		return err
	}
	if !ok {
		storeID, ok, err = p.registerStore(ctx, vendorID, storeCode, dateStr, entry, sum)
		if err != nil {
			return err
		}
		if !ok {
			sum.FilesSkipped++
			p.countFile("skipped")
			return nil
		}
	}

	file := records.FileRecord{
		RuleID:      ruleID,
		StoreID:     storeID,
		Name:        entry.Filename,
		Format:      string(p.desc.Format),
		Status:      records.StatusInit,
		PublishedOn: dateStr,
		ZipName:     entry.ZipName,
		BatchNumber: filemeta.BatchNumber(p.desc.Name, entry.Filename),
	}
	if err := file.Validate(); err != nil {
		return err
	}
	if err := p.store.InsertFile(ctx, file); err != nil {
		return err
	}

	fileID, status, found, err := p.store.FileStatus(ctx, storeID, date)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("file %s not tracked after insert", entry.Filename)
	}
	if status == records.StatusLoaded {
		p.log.Info("prices already loaded", "file", entry.Filename, "file_id", fileID)
		sum.FilesSkipped++
		p.countFile("skipped")
		return nil
	}

	body, meta, err := p.adapter.Fetch(ctx, entry)
	if err != nil {
		if p.metrics != nil {
			p.metrics.FetchErrors.WithLabelValues(p.desc.Name).Inc()
		}
		return err
	}
	p.log.Debug("file fetched", "file", entry.Filename, "status", meta.StatusCode, "bytes", len(body), "latency", meta.Latency)

	table, err := p.parse(entry, body, dateStr)
	if err != nil {
		return err
	}

	columns := p.columnsFor(entry)
	var prices []records.PriceRecord
	for _, cells := range table.Rows {
		rec, err := records.Build(fileID, dateStr, p.rowFrom(columns, table, cells))
		if err != nil {
			sum.RowsRejected++
			if p.metrics != nil {
				p.metrics.RowsRejected.WithLabelValues(p.desc.Name).Inc()
			}
			continue
		}
		prices = append(prices, rec)
	}

	inserted, err := p.store.InsertPrices(ctx, prices)
	if err != nil {
		return err
	}
	sum.RowsInserted += inserted
	if p.metrics != nil {
		p.metrics.RowsInserted.WithLabelValues(p.desc.Name).Add(float64(inserted))
	}

	if err := p.store.UpdateFileStatus(ctx, storeID, entry.Filename, date); err != nil {
		return err
	}
	sum.FilesLoaded++
	p.countFile("loaded")
	p.log.Info("file loaded", "file", entry.Filename, "rows", inserted)
	return nil
}

// registerStore derives a new store location from the file name. When
// the name does not yield an address, a known form factor and a known
// locality, the file is skipped rather than registered wrong.
func (p *Pipeline) registerStore(ctx context.Context, vendorID int64, storeCode, dateStr string, entry adapters.ManifestEntry, sum *Summary) (int64, bool, error) {
	if !p.desc.AutoRegister {
		p.log.Warn("store not registered and chain has no address rule, skipping",
			"file", entry.Filename, "store_code", storeCode)
		return 0, false, nil
	}

	addr, city, ok := filemeta.AddressCity(p.desc.Name, entry.Filename)
	if !ok {
		p.log.Warn("address not derivable from file name, skipping", "file", entry.Filename)
		return 0, false, nil
	}
	form, ok := records.FormFactorFromToken(filemeta.FormToken(p.desc.Name, entry.Filename))
	if !ok {
		p.log.Warn("unknown store form factor, skipping", "file", entry.Filename)
		return 0, false, nil
	}
	localityID, ok, err := p.store.LocalityID(ctx, city)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		p.log.Warn("unknown locality, skipping", "file", entry.Filename, "locality", city)
		return 0, false, nil
	}

	loc := records.StoreLocation{
		ChainID:     vendorID,
		LocalityID:  localityID,
		Address:     addr,
		FormFactor:  form,
		Code:        storeCode,
		EffectiveOn: dateStr,
	}
	if err := p.store.InsertStore(ctx, loc); err != nil {
		return 0, false, err
	}
	sum.StoresRegistered++
	p.log.Info("store registered", "store_code", storeCode, "address", addr, "locality", city)

	return p.reload(ctx, vendorID, storeCode)
}

func (p *Pipeline) reload(ctx context.Context, vendorID int64, storeCode string) (int64, bool, error) {
	storeID, ok, err := p.store.StoreID(ctx, vendorID, storeCode)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, fmt.Errorf("store %s missing after registration", storeCode)
	}
	return storeID, true, nil
}

// parse turns the fetched document into a positional table. CSV bodies
// go through encoding repair first; a repaired copy lands in the audit
// tree.
func (p *Pipeline) parse(entry adapters.ManifestEntry, body []byte, dateStr string) (*tabular.Table, error) {
	switch p.desc.Format {
	case vendors.FormatCSV:
		normalized, det, corrected, err := encfix.Normalize(entry.Filename, body)
		if err != nil {
			return nil, err
		}
		if corrected {
			p.log.Info("encoding repaired", "file", entry.Filename, "detected", det.Encoding, "confidence", det.Confidence)
		}
		p.persistCopy(entry, normalized, dateStr)
		return tabular.ReadCSV(normalized, p.desc.Separator)

	case vendors.FormatXLSX:
		p.persistCopy(entry, body, dateStr)
		return tabular.ReadXLSX(body, p.desc.SkipRows)

	case vendors.FormatXML:
		p.persistCopy(entry, body, dateStr)
		shape, err := p.xmlShape(entry)
		if err != nil {
			return nil, err
		}
		return tabular.ReadXML(body, shape.Record, shape.Fields)
	}
	return nil, fmt.Errorf("unknown format %q", p.desc.Format)
}

// xmlShape picks the record layout; chains with per-form variants key
// them by the form token of the file name.
func (p *Pipeline) xmlShape(entry adapters.ManifestEntry) (vendors.XMLShape, error) {
	if p.desc.XML != nil {
		return *p.desc.XML, nil
	}
	token := strings.ToLower(filemeta.FormToken(p.desc.Name, entry.Filename))
	shape, ok := p.desc.XMLVariants[token]
	if !ok {
		return vendors.XMLShape{}, fmt.Errorf("no feed layout for form %q", token)
	}
	return shape, nil
}

// columnsFor resolves the positional column map, which for XML chains
// lives on the record shape.
func (p *Pipeline) columnsFor(entry adapters.ManifestEntry) vendors.ColumnMap {
	if p.desc.Format != vendors.FormatXML {
		return p.desc.Columns
	}
	shape, err := p.xmlShape(entry)
	if err != nil {
		return p.desc.Columns
	}
	return shape.Columns
}

// rowFrom maps one table row into canonical field order and applies
// the chain-specific cell repairs and price truncation.
func (p *Pipeline) rowFrom(cm vendors.ColumnMap, t *tabular.Table, cells []string) records.Row {
	chain := p.desc.Name
	cell := func(col int) string { return t.Cell(cells, col) }

	price := func(col int, anchor bool) string {
		v := cell(col)
		if chain == "DM" {
			v = normalize.StripEuro(v)
		}
		if anchor {
			v = normalize.FixAnchorPrice(chain, v)
		}
		return normalize.TruncateDecimals(v)
	}

	code := cell(cm.Code)
	if fixed, ok := normalize.FixCode(chain, code); ok {
		code = fixed
	} else {
		code = ""
	}

	return records.Row{
		Name:        normalize.FixName(chain, cell(cm.Name)),
		Code:        code,
		Brand:       normalize.FixBrand(chain, cell(cm.Brand)),
		NetQuantity: cell(cm.NetQuantity),
		Unit:        cell(cm.Unit),
		Retail:      price(cm.Retail, false),
		PerUnit:     price(cm.PerUnit, false),
		Special:     price(cm.Special, false),
		Lowest30:    price(cm.Lowest30, false),
		Anchor:      price(cm.Anchor, true),
		Barcode:     cell(cm.Barcode),
		Category:    cell(cm.Category),
	}
}

// persistCopy writes the fetched document into the audit tree:
// <out>/<date>/<chain>/<file>.<ext>.
func (p *Pipeline) persistCopy(entry adapters.ManifestEntry, body []byte, dateStr string) {
	if p.outDir == "" {
		return
	}
	dir := filepath.Join(p.outDir, dateStr, p.desc.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.log.Warn("audit dir not writable", "dir", dir, "err", err)
		return
	}
	name := entry.Filename + "." + strings.ToLower(string(p.desc.Format))
	if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
		p.log.Warn("audit copy not written", "file", name, "err", err)
	}
}
