// Package cwe mirrors the MITRE weakness catalog so the weakness IDs
// attached to query responses can be resolved to names.
package cwe

import (
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

const catalogURL = "https://cwe.mitre.org/data/xml/cwec_latest.xml.zip"

// Update downloads the catalog and upserts the entries.
func Update(db *bun.DB) error {
	logrus.Info("Start updating CWEs")
	entries, err := downloadCwes(catalogURL)
	if err != nil {
		return err
	}
	return pgsql.UpdateCwes(db, entries)
}
