// Package pgsql persists feed records and serves candidate retrieval
// for the query pipeline.
package pgsql

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Object is the raw feed record, stored as an atomic JSON blob keyed
// by CVE id.
type Object struct {
	bun.BaseModel `bun:"table:objects,alias:o"`
	Id            uuid.UUID `bun:"id,pk,type:uuid"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero"`
	CveId         string    `bun:"cve_id,notnull,unique"`
	Data          string    `bun:"data,notnull"`
}

// Reference is the reference subset stored on the cves row.
type Reference struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

// Cve is one (vendor, product, cve_id) index row. A record that
// enumerates many products gets one row per product, all pointing at
// the same object.
type Cve struct {
	bun.BaseModel `bun:"table:cves,alias:c"`
	Id            uuid.UUID   `bun:"id,pk,type:uuid"`
	CreatedAt     time.Time   `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time   `bun:"updated_at,nullzero"`
	Source        string      `bun:"source,notnull"`
	Vendor        string      `bun:"vendor,notnull,unique:cves_vendor_product_cve_id"`
	Product       string      `bun:"product,notnull,unique:cves_vendor_product_cve_id"`
	CveId         string      `bun:"cve_id,notnull,unique:cves_vendor_product_cve_id"`
	Summary       string      `bun:"summary"`
	Score         float64     `bun:"score"`
	Severity      string      `bun:"severity"`
	Vector        string      `bun:"vector"`
	References    []Reference `bun:"references,type:jsonb"`
	ObjectId      uuid.UUID   `bun:"object_id,type:uuid"`
	Object        *Object     `bun:"rel:belongs-to,join:object_id=id"`
}

// Cwe is one entry of the MITRE weakness catalog.
type Cwe struct {
	bun.BaseModel `bun:"table:cwes,alias:w"`
	Id            uuid.UUID `bun:"id,pk,type:uuid"`
	CweId         string    `bun:"cwe_id,notnull,unique"`
	Name          string    `bun:"name"`
	Abstraction   string    `bun:"abstraction"`
	Status        string    `bun:"status"`
	Description   string    `bun:"description"`
}

// Product is a distinct (vendor, product) pair known to the store.
type Product struct {
	Vendor  string `bun:"vendor" json:"vendor"`
	Product string `bun:"product" json:"product"`
}
