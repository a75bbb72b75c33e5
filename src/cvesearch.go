// Package cvesearch wires the feed mirrors, the store and the query
// engine together.
package cvesearch

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/mirrors/cwe"
	"github.com/CodeClarityCE/service-cvesearch/src/mirrors/nvd"
	"github.com/CodeClarityCE/service-cvesearch/src/nist"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/broker"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

// Setup creates the storage schema.
func Setup(db *bun.DB) error {
	return pgsql.CreateTables(context.Background(), db)
}

// ImportYear downloads and imports one yearly NVD feed.
func ImportYear(db *bun.DB, year int, dataPath string, refresh bool) (int, error) {
	records, err := nvd.Download(year, dataPath, refresh)
	if err != nil {
		return 0, err
	}
	return nvd.Import(db, records)
}

// Update refreshes every mirrored source. Individual source failures
// are logged and do not stop the remaining sources, matching the
// behaviour expected from a periodic daemon run.
func Update(db *bun.DB, dataPath string, events *broker.Broker) error {
	err := nvd.Update(db, dataPath)
	if err != nil {
		logrus.Errorf("NVD update failed: %v", err)
	}

	err = cwe.Update(db)
	if err != nil {
		logrus.Errorf("CWE update failed: %v", err)
	}

	if events != nil {
		err = events.PublishRefresh(context.Background(), nist.SourceName)
		if err != nil {
			logrus.Errorf("failed to announce refresh: %v", err)
		}
	}

	return nil
}
