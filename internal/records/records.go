// Package records holds the canonical row types produced by ingestion
// and the validation rules that turn raw file cells into them.
package records

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the processing state of a price file.
type Status int

const (
	StatusInit   Status = 0
	StatusLoaded Status = 1
	// StatusError marks a file written off by an operator. The loader
	// never sets it; failed files stay INIT and are retried next run.
	StatusError Status = 9
)

// FormFactor is the sales format of a store, as published by the
// chains in their file names.
type FormFactor string

const (
	FormCashAndCarry       FormFactor = "CASH AND CARRY PRODAVAONICA"
	FormDiscount           FormFactor = "DISKONTNA PRODAVAONICA"
	FormHypermarket        FormFactor = "HIPERMARKET"
	FormMinimarket         FormFactor = "MINIMARKET"
	FormCashAndCarryDepot  FormFactor = "PRODAJNO SKLADIŠTE CASH AND CARRY"
	FormHeadquarters       FormFactor = "SJEDIŠTE"
	FormWholesaleWarehouse FormFactor = "SKLADIŠTE ZA TRGOVANJE ROBOM NA VELIKO I MALO"
	FormSupermarket        FormFactor = "SUPERMARKET"
	FormStore              FormFactor = "TRGOVINA"
)

var formFactors = map[string]FormFactor{
	string(FormCashAndCarry):       FormCashAndCarry,
	string(FormDiscount):           FormDiscount,
	string(FormHypermarket):        FormHypermarket,
	string(FormMinimarket):         FormMinimarket,
	string(FormCashAndCarryDepot):  FormCashAndCarryDepot,
	string(FormHeadquarters):       FormHeadquarters,
	string(FormWholesaleWarehouse): FormWholesaleWarehouse,
	string(FormSupermarket):        FormSupermarket,
	string(FormStore):              FormStore,
}

// FormFactorFromToken maps a file-name token to a known form factor.
// Underscored variants ("cash_and_carry_prodavaonica") are accepted.
func FormFactorFromToken(s string) (FormFactor, bool) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	ff, ok := formFactors[key]
	return ff, ok
}

// StoreLocation is one physical store of a chain.
type StoreLocation struct {
	ChainID     int64
	LocalityID  int64
	Address     string
	FormFactor  FormFactor
	Code        string
	EffectiveOn string // dd.mm.yyyy
}

// FileRecord tracks one published price file through ingestion.
type FileRecord struct {
	RuleID      int64
	StoreID     int64
	Name        string
	Format      string
	Status      Status
	PublishedOn string // dd.mm.yyyy
	ZipName     string // archive the file arrived in, if any
	BatchNumber string // chain-assigned publication number, if any
}

const maxFileNameLen = 4000

var (
	forbiddenNameChars = `<>:"/\|?*`
	batchNumberRx      = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)
)

// Validate checks the file record fields against the storage
// constraints before it is written.
func (f *FileRecord) Validate() error {
	if f.Name == "" {
		return &ValidationError{Field: "name", Reason: "empty"}
	}
	if len(f.Name) > maxFileNameLen {
		return &ValidationError{Field: "name", Value: f.Name, Reason: "longer than 4000 characters"}
	}
	if strings.ContainsAny(f.Name, forbiddenNameChars) {
		return &ValidationError{Field: "name", Value: f.Name, Reason: "contains a forbidden character"}
	}
	if f.BatchNumber != "" && !batchNumberRx.MatchString(f.BatchNumber) {
		return &ValidationError{Field: "batch number", Value: f.BatchNumber, Reason: "not alphanumeric"}
	}
	if _, err := ParseDate(f.PublishedOn); err != nil {
		return err
	}
	return nil
}

// PriceRecord is one validated product price row tied to a file.
type PriceRecord struct {
	FileID      int64
	Name        string
	Code        *string
	Brand       *string
	NetQuantity *string
	Unit        *string
	Retail      *decimal.Decimal // current shelf price
	PerUnit     *decimal.Decimal
	Special     *decimal.Decimal // promotional price
	SpecialFlag bool
	Lowest30    *decimal.Decimal
	Anchor      *decimal.Decimal
	Barcode     *string
	Category    *string
	Date        string // dd.mm.yyyy
}

// ValidationError reports a row or file field that failed validation.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validate %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validate %s %q: %s", e.Field, e.Value, e.Reason)
}
