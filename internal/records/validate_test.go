package records

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func today() string { return time.Now().Format(DateLayout) }

func TestBuildCleansFields(t *testing.T) {
	rec, err := Build(7, today(), Row{
		Name:        "  -mlijeko   trajno 2,8%  ",
		Code:        "123456.0",
		Brand:       "dukat",
		NetQuantity: ",75",
		Unit:        "l",
		Retail:      "1.19",
		Barcode:     "3850123456789.0",
		Category:    "nan",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.FileID)
	assert.Equal(t, "MLIJEKO TRAJNO 2,8%", rec.Name)
	require.NotNil(t, rec.Code)
	assert.Equal(t, "123456", *rec.Code)
	require.NotNil(t, rec.Brand)
	assert.Equal(t, "DUKAT", *rec.Brand)
	require.NotNil(t, rec.NetQuantity)
	assert.Equal(t, "0,75", *rec.NetQuantity)
	require.NotNil(t, rec.Barcode)
	assert.Equal(t, "3850123456789", *rec.Barcode)
	assert.Nil(t, rec.Category)
	require.NotNil(t, rec.Retail)
	assert.True(t, rec.Retail.Equal(decimal.RequireFromString("1.19")))
}

func TestBuildRequiresName(t *testing.T) {
	_, err := Build(1, today(), Row{Name: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "product name", verr.Field)

	_, err = Build(1, today(), Row{Name: "nan"})
	assert.Error(t, err)
}

func TestBuildBarcodeLength(t *testing.T) {
	rec, err := Build(1, today(), Row{Name: "X proizvod", Barcode: "12"})
	require.NoError(t, err)
	assert.Nil(t, rec.Barcode, "too short")

	rec, err = Build(1, today(), Row{Name: "X proizvod", Barcode: "12345678901234"})
	require.NoError(t, err)
	assert.Nil(t, rec.Barcode, "too long")

	rec, err = Build(1, today(), Row{Name: "X proizvod", Barcode: "385012A8"})
	require.NoError(t, err)
	assert.Nil(t, rec.Barcode, "non-digit")

	rec, err = Build(1, today(), Row{Name: "X proizvod", Barcode: "38501238"})
	require.NoError(t, err)
	require.NotNil(t, rec.Barcode)
	assert.Equal(t, "38501238", *rec.Barcode)
}

func TestBuildPromotionOverride(t *testing.T) {
	rec, err := Build(1, today(), Row{Name: "Proizvod", Retail: "2.00", Special: "1.50"})
	require.NoError(t, err)
	assert.True(t, rec.SpecialFlag)
	require.NotNil(t, rec.Retail)
	assert.True(t, rec.Retail.Equal(decimal.RequireFromString("1.50")))

	rec, err = Build(1, today(), Row{Name: "Proizvod", Retail: "2.00", Special: "0.00"})
	require.NoError(t, err)
	assert.False(t, rec.SpecialFlag, "zero promotion is no promotion")
	assert.True(t, rec.Retail.Equal(decimal.RequireFromString("2.00")))

	rec, err = Build(1, today(), Row{Name: "Proizvod", Retail: "2.00"})
	require.NoError(t, err)
	assert.False(t, rec.SpecialFlag)
}

func TestBuildRejectsBadDates(t *testing.T) {
	_, err := Build(1, "2025-09-26", Row{Name: "Proizvod"})
	assert.Error(t, err)

	future := time.Now().AddDate(0, 0, 2).Format(DateLayout)
	_, err = Build(1, future, Row{Name: "Proizvod"})
	assert.Error(t, err)
}

func TestFormFactorFromToken(t *testing.T) {
	ff, ok := FormFactorFromToken("supermarket")
	assert.True(t, ok)
	assert.Equal(t, FormSupermarket, ff)

	ff, ok = FormFactorFromToken("cash_and_carry_prodavaonica")
	assert.True(t, ok)
	assert.Equal(t, FormCashAndCarry, ff)

	_, ok = FormFactorFromToken("KIOSK")
	assert.False(t, ok)
}

func TestFileRecordValidate(t *testing.T) {
	f := &FileRecord{Name: "cjenik", Format: "CSV", PublishedOn: today(), BatchNumber: "135"}
	assert.NoError(t, f.Validate())

	f = &FileRecord{Name: "cjenik?x", PublishedOn: today()}
	assert.Error(t, f.Validate(), "forbidden character")

	f = &FileRecord{Name: "cjenik", PublishedOn: today(), BatchNumber: "13 5"}
	assert.Error(t, f.Validate(), "batch number with space")

	f = &FileRecord{Name: "", PublishedOn: today()}
	assert.Error(t, f.Validate())
}
