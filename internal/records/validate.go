package records

import (
	"regexp"
	"strings"
	"time"

	"github.com/491415/PMCT/internal/normalize"
)

// DateLayout is the canonical publication date format used across the
// chains and the store.
const DateLayout = "02.01.2006"

// ParseDate parses a canonical dd.mm.yyyy date and rejects dates in
// the future.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Value: s, Reason: "not a dd.mm.yyyy date"}
	}
	if d.After(time.Now()) {
		return time.Time{}, &ValidationError{Field: "date", Value: s, Reason: "in the future"}
	}
	return d, nil
}

// Row carries the raw cell values of one product line, in canonical
// field order. Price cells are expected to have gone through the
// chain-specific literal fixes and decimal truncation already.
type Row struct {
	Name        string
	Code        string
	Brand       string
	NetQuantity string
	Unit        string
	Retail      string
	PerUnit     string
	Special     string
	Lowest30    string
	Anchor      string
	Barcode     string
	Category    string
}

var (
	// leadingJunkRx strips non-alphanumeric noise in front of the
	// first real character of a product name.
	leadingJunkRx = regexp.MustCompile(`^[^A-Ža-ž0-9']+`)
	whitespaceRx  = regexp.MustCompile(`\s+`)
	barcodeRx     = regexp.MustCompile(`^[0-9]+$`)
)

// Build validates one raw row into a PriceRecord. The product name is
// mandatory; all other fields degrade to absent when unusable. A
// non-zero promotional price overrides the retail price and raises the
// promotion flag.
func Build(fileID int64, date string, row Row) (PriceRecord, error) {
	if _, err := ParseDate(date); err != nil {
		return PriceRecord{}, err
	}

	name := cleanName(row.Name)
	if name == "" || normalize.IsNullLiteral(name) {
		return PriceRecord{}, &ValidationError{Field: "product name", Value: row.Name, Reason: "missing"}
	}

	rec := PriceRecord{
		FileID:      fileID,
		Name:        name,
		Code:        cleanCode(row.Code),
		Brand:       optionalText(row.Brand),
		NetQuantity: cleanNetQuantity(row.NetQuantity),
		Unit:        optionalText(row.Unit),
		Retail:      normalize.ParsePrice(row.Retail),
		PerUnit:     normalize.ParsePrice(row.PerUnit),
		Special:     normalize.ParsePrice(row.Special),
		Lowest30:    normalize.ParsePrice(row.Lowest30),
		Anchor:      normalize.ParsePrice(row.Anchor),
		Barcode:     cleanBarcode(row.Barcode),
		Category:    optionalText(row.Category),
		Date:        date,
	}

	if rec.Special != nil && !rec.Special.IsZero() {
		rec.SpecialFlag = true
		rec.Retail = rec.Special
	}

	return rec, nil
}

func cleanName(s string) string {
	s = leadingJunkRx.ReplaceAllString(s, "")
	s = whitespaceRx.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

func optionalText(s string) *string {
	if normalize.IsNullLiteral(s) {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(s))
	return &v
}

func cleanCode(s string) *string {
	if normalize.IsNullLiteral(s) {
		return nil
	}
	s = strings.TrimSuffix(s, ".0")
	v := strings.ToUpper(strings.TrimSpace(s))
	return &v
}

func cleanNetQuantity(s string) *string {
	if normalize.IsNullLiteral(s) {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(normalize.AddLeadingZero(s)))
	return &v
}

func cleanBarcode(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	s = strings.TrimSuffix(s, ".0")
	if !barcodeRx.MatchString(s) {
		return nil
	}
	if len(s) < 8 || len(s) > 13 {
		return nil
	}
	return &s
}
