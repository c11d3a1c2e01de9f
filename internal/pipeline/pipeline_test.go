package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/491415/PMCT/internal/adapters"
	"github.com/491415/PMCT/internal/metrics"
	"github.com/491415/PMCT/internal/records"
	"github.com/491415/PMCT/internal/vendors"
)

var runDate = time.Date(2025, time.September, 26, 0, 0, 0, 0, time.UTC)

// konzumFile carries form factor, address with postal code and city,
// store code and batch number in its comma-separated fields.
const konzumFile = "SUPERMARKET,Ilica 10 10000 Zagreb,0354,18,26.09.2025,07.30"

const konzumCSV = "naziv,sifra,marka,kolicina,jm,mpc,cijena_jm,mpc_akcija,najniza_30,sidrena,barkod,kategorija\n" +
	"MLIJEKO 2.8%,1001,DUKAT,1 l,KOM,1.15,1.15,,,1.09,3850102000015,Mliječni proizvodi\n" +
	"ČOKOLADA,1002,KRAŠ,100 g,KOM,3.99,39.90,2.99,2.99,3.89,3850102000022,Slatkiši\n"

type trackedFile struct {
	id     int64
	status records.Status
}

type fakeStorage struct {
	vendorIDs  map[string]int64
	localities map[string]int64
	storeIDs   map[string]int64
	stores     []records.StoreLocation
	files      map[int64]*trackedFile
	prices     map[int64][]records.PriceRecord
	nextID     int64

	// priceConflict makes InsertPrices behave as the real store does
	// when the whole batch hits a duplicate key: zero rows, no error.
	priceConflict bool
}

func newFakeStorage(vendor string) *fakeStorage {
	return &fakeStorage{
		vendorIDs:  map[string]int64{vendor: 7},
		localities: map[string]int64{"Zagreb": 42},
		storeIDs:   map[string]int64{},
		files:      map[int64]*trackedFile{},
		prices:     map[int64][]records.PriceRecord{},
		nextID:     100,
	}
}

func (f *fakeStorage) VendorID(_ context.Context, name string) (int64, error) {
	return f.vendorIDs[name], nil
}

func (f *fakeStorage) RuleID(_ context.Context, vendorID int64) (int64, error) {
	return vendorID * 10, nil
}

func (f *fakeStorage) LocalityID(_ context.Context, name string) (int64, bool, error) {
	id, ok := f.localities[name]
	return id, ok, nil
}

func (f *fakeStorage) StoreID(_ context.Context, _ int64, code string) (int64, bool, error) {
	id, ok := f.storeIDs[code]
	return id, ok, nil
}

func (f *fakeStorage) InsertStore(_ context.Context, loc records.StoreLocation) error {
	f.nextID++
	f.storeIDs[loc.Code] = f.nextID
	f.stores = append(f.stores, loc)
	return nil
}

func (f *fakeStorage) InsertFile(_ context.Context, rec records.FileRecord) error {
	if _, ok := f.files[rec.StoreID]; ok {
		return nil // duplicate insert is a no-op
	}
	f.nextID++
	f.files[rec.StoreID] = &trackedFile{id: f.nextID, status: rec.Status}
	return nil
}

func (f *fakeStorage) FileStatus(_ context.Context, storeID int64, _ time.Time) (int64, records.Status, bool, error) {
	tf, ok := f.files[storeID]
	if !ok {
		return 0, 0, false, nil
	}
	return tf.id, tf.status, true, nil
}

func (f *fakeStorage) InsertPrices(_ context.Context, prices []records.PriceRecord) (int64, error) {
	if f.priceConflict || len(prices) == 0 {
		return 0, nil
	}
	f.prices[prices[0].FileID] = append(f.prices[prices[0].FileID], prices...)
	return int64(len(prices)), nil
}

func (f *fakeStorage) UpdateFileStatus(_ context.Context, storeID int64, _ string, _ time.Time) error {
	f.files[storeID].status = records.StatusLoaded
	return nil
}

func konzumPipeline(t *testing.T, st Storage, mock *adapters.Mock) *Pipeline {
	t.Helper()
	desc, err := vendors.Default().Lookup("KONZUM")
	require.NoError(t, err)
	return New(Options{
		Desc:    desc,
		Adapter: mock,
		Store:   st,
		Metrics: metrics.New(),
		OutDir:  t.TempDir(),
	})
}

func TestRunRegistersStoreAndLoadsFile(t *testing.T) {
	mock := &adapters.Mock{
		Entries: []adapters.ManifestEntry{{URL: "https://example.test/f.csv", Filename: konzumFile}},
		Docs:    map[string][]byte{konzumFile: []byte(konzumCSV)},
	}
	st := newFakeStorage("KONZUM")

	sum, err := konzumPipeline(t, st, mock).Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.FilesResolved)
	assert.Equal(t, 1, sum.FilesLoaded)
	assert.Equal(t, 1, sum.StoresRegistered)
	assert.Equal(t, int64(2), sum.RowsInserted)
	assert.Zero(t, sum.RowsRejected)

	require.Len(t, st.stores, 1)
	loc := st.stores[0]
	assert.Equal(t, "0354", loc.Code)
	assert.Equal(t, "ILICA 10", loc.Address)
	assert.Equal(t, int64(42), loc.LocalityID)
	assert.Equal(t, records.FormSupermarket, loc.FormFactor)

	storeID := st.storeIDs["0354"]
	assert.Equal(t, records.StatusLoaded, st.files[storeID].status)
}

func TestRunAppliesSpecialPrice(t *testing.T) {
	mock := &adapters.Mock{
		Entries: []adapters.ManifestEntry{{URL: "u", Filename: konzumFile}},
		Docs:    map[string][]byte{konzumFile: []byte(konzumCSV)},
	}
	st := newFakeStorage("KONZUM")

	_, err := konzumPipeline(t, st, mock).Run(context.Background(), runDate)
	require.NoError(t, err)

	var all []records.PriceRecord
	for _, rows := range st.prices {
		all = append(all, rows...)
	}
	require.Len(t, all, 2)

	var promo *records.PriceRecord
	for i := range all {
		if all[i].Name == "ČOKOLADA" {
			promo = &all[i]
		}
	}
	require.NotNil(t, promo)
	assert.True(t, promo.SpecialFlag)
	require.NotNil(t, promo.Retail)
	assert.True(t, promo.Retail.Equal(decimal.RequireFromString("2.99")),
		"promo price replaces the retail price")
}

func TestRunSkipsAlreadyLoadedFile(t *testing.T) {
	mock := &adapters.Mock{
		Entries: []adapters.ManifestEntry{{URL: "u", Filename: konzumFile}},
		Docs:    map[string][]byte{konzumFile: []byte(konzumCSV)},
	}
	st := newFakeStorage("KONZUM")
	st.storeIDs["0354"] = 500
	st.files[500] = &trackedFile{id: 900, status: records.StatusLoaded}

	sum, err := konzumPipeline(t, st, mock).Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.FilesSkipped)
	assert.Zero(t, sum.FilesLoaded)
	assert.Zero(t, sum.RowsInserted)
	assert.Zero(t, mock.FetchCalls, "loaded files are never re-fetched")
}

func TestRunIsIdempotent(t *testing.T) {
	mock := &adapters.Mock{
		Entries: []adapters.ManifestEntry{{URL: "u", Filename: konzumFile}},
		Docs:    map[string][]byte{konzumFile: []byte(konzumCSV)},
	}
	st := newFakeStorage("KONZUM")
	p := konzumPipeline(t, st, mock)

	first, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.RowsInserted)

	second, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Zero(t, second.RowsInserted)
	assert.Equal(t, 1, second.FilesSkipped)
}

func TestRunContinuesWhenPricesAlreadyPresent(t *testing.T) {
	mock := &adapters.Mock{
		Entries: []adapters.ManifestEntry{{URL: "u", Filename: konzumFile}},
		Docs:    map[string][]byte{konzumFile: []byte(konzumCSV)},
	}
	st := newFakeStorage("KONZUM")
	st.priceConflict = true

	sum, err := konzumPipeline(t, st, mock).Run(context.Background(), runDate)
	require.NoError(t, err, "a duplicate batch must not fail the run")

	assert.Zero(t, sum.RowsInserted)
	assert.Equal(t, 1, sum.FilesLoaded)

	storeID := st.storeIDs["0354"]
	assert.Equal(t, records.StatusLoaded, st.files[storeID].status,
		"the file is marked loaded even when its rows were already there")
}

func TestRunRejectsInvalidRows(t *testing.T) {
	csv := "naziv,sifra,marka,kolicina,jm,mpc,cijena_jm,mpc_akcija,najniza_30,sidrena,barkod,kategorija\n" +
		",1001,,,KOM,1.15,,,,,,\n" + // no product name
		"KRUH,1002,,,KOM,0.99,,,,,,\n"
	mock := &adapters.Mock{
		Entries: []adapters.ManifestEntry{{URL: "u", Filename: konzumFile}},
		Docs:    map[string][]byte{konzumFile: []byte(csv)},
	}
	st := newFakeStorage("KONZUM")

	sum, err := konzumPipeline(t, st, mock).Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, int64(1), sum.RowsInserted)
	assert.Equal(t, 1, sum.RowsRejected)
}

func TestRunFailsOnFetchError(t *testing.T) {
	mock := &adapters.Mock{
		Entries:  []adapters.ManifestEntry{{URL: "u", Filename: konzumFile}},
		FetchErr: assert.AnError,
	}
	st := newFakeStorage("KONZUM")

	sum, err := konzumPipeline(t, st, mock).Run(context.Background(), runDate)
	require.Error(t, err)
	assert.Zero(t, sum.FilesLoaded)
}

func TestRunSkipsUnknownStoreWithoutAddressRule(t *testing.T) {
	desc, err := vendors.Default().Lookup("ŽABAC")
	require.NoError(t, err)
	require.False(t, desc.AutoRegister)

	mock := &adapters.Mock{
		Entries: []adapters.ManifestEntry{{URL: "u", Filename: "zabac_cjenik_77_26.09.2025"}},
	}
	st := newFakeStorage(desc.Name)

	p := New(Options{Desc: desc, Adapter: mock, Store: st})
	sum, err := p.Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.FilesSkipped)
	assert.Zero(t, sum.StoresRegistered)
	assert.Zero(t, mock.FetchCalls)
}

func TestRunResolveFailurePropagates(t *testing.T) {
	mock := &adapters.Mock{ResolveErr: &adapters.NotFoundError{Vendor: "KONZUM", Date: runDate}}
	st := newFakeStorage("KONZUM")

	_, err := konzumPipeline(t, st, mock).Run(context.Background(), runDate)
	var nf *adapters.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestXMLShapeVariantSelection(t *testing.T) {
	desc, err := vendors.Default().Lookup("VRUTAK")
	require.NoError(t, err)

	p := New(Options{Desc: desc, Adapter: &adapters.Mock{}, Store: newFakeStorage("VRUTAK")})

	shape, err := p.xmlShape(adapters.ManifestEntry{Filename: "cjenik-HIPERMARKET-10-001-26092025"})
	require.NoError(t, err)
	assert.Equal(t, 7, shape.Columns.Anchor)

	_, err = p.xmlShape(adapters.ManifestEntry{Filename: "cjenik-KIOSK-10-001-26092025"})
	assert.Error(t, err, "a form without a declared layout fails the file")
}
