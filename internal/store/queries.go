package store

import "os"

// Queries holds the SQL text the store runs. The text ships with
// working defaults for the canonical schema and every statement can be
// overridden through the environment, so schema changes in production
// never require a rebuild.
type Queries struct {
	VendorID         string
	RuleID           string
	LocalityID       string
	StoreID          string
	InsertStore      string
	InsertFile       string
	FileStatus       string
	InsertPrice      string
	UpdateFileStatus string
}

// Environment keys holding per-statement overrides.
const (
	envVendorID         = "QUERY_VENDOR_ID"
	envRuleID           = "QUERY_RULE_ID"
	envLocalityID       = "QUERY_LOCALITY_ID"
	envStoreID          = "QUERY_STORE_ID"
	envInsertStore      = "QUERY_INSERT_STORE"
	envInsertFile       = "QUERY_INSERT_FILE"
	envFileStatus       = "QUERY_FILE_STATUS"
	envInsertPrice      = "QUERY_INSERT_PRICE"
	envUpdateFileStatus = "QUERY_UPDATE_FILE_STATUS"
)

// DefaultQueries returns the built-in statements.
func DefaultQueries() Queries {
	return Queries{
		VendorID:   `SELECT id FROM chains WHERE name = $1`,
		RuleID:     `SELECT id FROM pricing_rules WHERE chain_id = $1`,
		LocalityID: `SELECT id FROM localities WHERE name = $1`,
		StoreID:    `SELECT id FROM stores WHERE chain_id = $1 AND code = $2`,
		InsertStore: `INSERT INTO stores (chain_id, locality_id, address, form, code, effective_on)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		InsertFile: `INSERT INTO price_files (rule_id, store_id, name, zip_name, format, status, published_on, batch_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		FileStatus: `SELECT id, status FROM price_files WHERE store_id = $1 AND published_on = $2`,
		InsertPrice: `INSERT INTO prices (file_id, name, code, brand, net_quantity, unit,
				retail, per_unit, special, special_flag, lowest30, anchor, barcode, category, published_on)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		UpdateFileStatus: `UPDATE price_files SET status = 1 WHERE store_id = $1 AND name = $2 AND published_on = $3`,
	}
}

// QueriesFromEnv layers environment overrides over the defaults.
func QueriesFromEnv() Queries {
	q := DefaultQueries()
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&q.VendorID, envVendorID)
	override(&q.RuleID, envRuleID)
	override(&q.LocalityID, envLocalityID)
	override(&q.StoreID, envStoreID)
	override(&q.InsertStore, envInsertStore)
	override(&q.InsertFile, envInsertFile)
	override(&q.FileStatus, envFileStatus)
	override(&q.InsertPrice, envInsertPrice)
	override(&q.UpdateFileStatus, envUpdateFileStatus)
	return q
}
