package pgsql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/nist"
)

// CreateTables creates the storage schema when it does not exist yet.
func CreateTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Object)(nil),
		(*Cve)(nil),
		(*Cwe)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}
	return nil
}

// ImportNvd writes a batch of feed records: one objects row per record
// plus one cves row per (vendor, product) pair the record enumerates.
// Existing rows are left untouched. Returns the number of new cves
// rows created.
func ImportNvd(db *bun.DB, records []nist.CVE) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			tx.Commit()
		}
	}()

	ctx := context.Background()
	imported := 0

	for i := range records {
		record := &records[i]

		data, merr := json.Marshal(record)
		if merr != nil {
			err = fmt.Errorf("failed to serialize %s: %w", record.ID(), merr)
			return imported, err
		}

		objectId, oerr := createObjectIfNotExist(ctx, tx, record.ID(), string(data))
		if oerr != nil {
			err = oerr
			return imported, err
		}

		refs := make([]Reference, 0, len(record.Info.References.ReferenceData))
		for _, ref := range record.Info.References.ReferenceData {
			refs = append(refs, Reference{URL: ref.URL, Tags: ref.Tags})
		}

		score, severity, vector := record.ScoreSeverityVector()

		for _, product := range record.CollectUniqueProducts() {
			row := &Cve{
				Id:         uuid.New(),
				Source:     nist.SourceName,
				Vendor:     product.Vendor,
				Product:    product.Product,
				CveId:      record.ID(),
				Summary:    record.Summary(),
				Score:      score,
				Severity:   severity,
				Vector:     vector,
				References: refs,
				ObjectId:   objectId,
			}
			created, cerr := createCveIfNotExist(ctx, tx, row)
			if cerr != nil {
				err = cerr
				return imported, err
			}
			if created {
				imported++
			}
		}
	}

	return imported, nil
}

func createObjectIfNotExist(ctx context.Context, tx bun.Tx, cveId, data string) (uuid.UUID, error) {
	var existing Object
	err := tx.NewSelect().Model(&existing).Where("cve_id = ?", cveId).Scan(ctx)
	if err == nil {
		return existing.Id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to look up object for %s: %w", cveId, err)
	}

	object := &Object{
		Id:    uuid.New(),
		CveId: cveId,
		Data:  data,
	}
	_, err = tx.NewInsert().Model(object).Exec(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert object for %s: %w", cveId, err)
	}
	return object.Id, nil
}

func createCveIfNotExist(ctx context.Context, tx bun.Tx, row *Cve) (bool, error) {
	exists, err := tx.NewSelect().Model((*Cve)(nil)).
		Where("vendor = ?", row.Vendor).
		Where("product = ?", row.Product).
		Where("cve_id = ?", row.CveId).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check existence for %s: %w", row.CveId, err)
	}
	if exists {
		return false, nil
	}

	_, err = tx.NewInsert().Model(row).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to insert cve %s: %w", row.CveId, err)
	}
	return true, nil
}

// DeleteCve removes a single (vendor, product, cve_id) row.
func DeleteCve(ctx context.Context, db *bun.DB, vendor, product, cveId string) error {
	_, err := db.NewDelete().Model((*Cve)(nil)).
		Where("vendor = ?", vendor).
		Where("product = ?", product).
		Where("cve_id = ?", cveId).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete cve %s: %w", cveId, err)
	}
	return nil
}

// FetchCandidates returns every stored row tagged with the given
// product, optionally narrowed by vendor, together with its raw
// record. Version filtering happens in memory, not here: the caller
// needs the complete candidate set.
func FetchCandidates(ctx context.Context, db *bun.DB, vendor, product string) ([]Cve, error) {
	var candidates []Cve
	query := db.NewSelect().Model(&candidates).
		Relation("Object").
		Where("c.product = ?", product)
	if vendor != "" {
		query = query.Where("c.vendor = ?", vendor)
	}
	err := query.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("error searching records: %w", err)
	}
	return candidates, nil
}
