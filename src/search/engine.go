// Package search implements the query pipeline: candidate retrieval by
// (product, optional vendor), record deserialization, configuration
// tree evaluation and an LRU result cache.
package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/nist"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/metrics"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
	"github.com/CodeClarityCE/service-cvesearch/src/versioncmp"
)

// Query asks which known vulnerabilities apply to a product at a
// version. Vendor narrows the candidate set when present; version is
// required and validated before any I/O.
type Query struct {
	Vendor  string `json:"vendor,omitempty"`
	Product string `json:"product"`
	Version string `json:"version"`
}

// CvssData is one scoring tier of a response.
type CvssData struct {
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
	ImpactScore  float64 `json:"impactScore"`
	Severity     string  `json:"severity"`
}

// Cvss carries whichever tiers the matched record has.
type Cvss struct {
	V3 *CvssData `json:"v3,omitempty"`
	V2 *CvssData `json:"v2,omitempty"`
}

// Reference is a response reference.
type Reference struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

// MatchedCVE is the projected response for one matching record. Vendor
// and product come from the stored meta row, not the record's own
// CPEs: a record can enumerate many pairs and the caller expects the
// one they asked under.
type MatchedCVE struct {
	Cve              string      `json:"cve"`
	Source           string      `json:"source"`
	Vendor           string      `json:"vendor"`
	Product          string      `json:"product"`
	Summary          string      `json:"summary,omitempty"`
	References       []Reference `json:"references"`
	Problems         []string    `json:"problems"`
	PublishedDate    string      `json:"publishedDate"`
	LastModifiedDate string      `json:"lastModifiedDate"`
	Cvss             Cvss        `json:"cvss"`
}

// Store serves candidate retrieval. It must return the complete
// candidate set for (product, vendor?); version filtering happens in
// memory afterwards.
type Store interface {
	FetchCandidates(ctx context.Context, vendor, product string) ([]pgsql.Cve, error)
}

// PostgresStore is the bun-backed Store.
type PostgresStore struct {
	DB *bun.DB
}

func (s *PostgresStore) FetchCandidates(ctx context.Context, vendor, product string) ([]pgsql.Cve, error) {
	return pgsql.FetchCandidates(ctx, s.DB, vendor, product)
}

// Engine answers queries against the store through the result cache.
type Engine struct {
	store Store
	cache *ResultCache
}

func NewEngine(store Store, cache *ResultCache) *Engine {
	if cache == nil {
		cache = NewResultCache(DefaultCacheCapacity)
	}
	return &Engine{store: store, cache: cache}
}

// Cache exposes the result cache so ingest paths can purge it.
func (e *Engine) Cache() *ResultCache {
	return e.cache
}

// Query runs the full pipeline: validate, consult the cache, fetch
// candidates, deserialize, evaluate, project, fill the cache. It
// aborts on the first error and never returns a partial list.
func (e *Engine) Query(ctx context.Context, query Query) ([]MatchedCVE, error) {
	logrus.Infof("searching query: %+v ...", query)

	// validate the version string before touching storage
	if _, err := versioncmp.Compare(query.Version, "1.0.0", versioncmp.Ne); err != nil {
		return nil, ErrInvalidQuery
	}

	if cached, ok := e.cache.Get(query); ok {
		logrus.Debug("cache hit")
		metrics.CacheHit()
		return cached, nil
	}
	logrus.Debug("cache miss")
	metrics.CacheMiss()

	start := time.Now()
	candidates, err := e.store.FetchCandidates(ctx, query.Vendor, query.Product)
	if err != nil {
		return nil, err
	}
	logrus.Infof("found %d candidates in %v", len(candidates), time.Since(start))

	start = time.Now()
	records := make([]nist.CVE, len(candidates))
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.Source != nist.SourceName {
			return nil, &UnsupportedSourceError{Source: candidate.Source}
		}
		data := ""
		if candidate.Object != nil {
			data = candidate.Object.Data
		}
		if err := json.Unmarshal([]byte(data), &records[i]); err != nil {
			return nil, &DeserializationError{CveId: candidate.CveId}
		}
	}
	logrus.Infof("deserialized the %d candidates in %v", len(records), time.Since(start))

	start = time.Now()
	matches := make([]MatchedCVE, 0)
	for i := range records {
		if records[i].IsMatch(query.Product, query.Version) {
			matches = append(matches, projectMatch(&candidates[i], &records[i]))
		}
	}
	logrus.Infof("found %d matches in %v", len(matches), time.Since(start))

	e.cache.Put(query, matches)
	return matches, nil
}

// projectMatch assembles the response from the meta row and the
// deserialized record.
func projectMatch(row *pgsql.Cve, record *nist.CVE) MatchedCVE {
	references := make([]Reference, 0, len(record.Info.References.ReferenceData))
	for _, ref := range record.Info.References.ReferenceData {
		references = append(references, Reference{URL: ref.URL, Tags: ref.Tags})
	}

	var cvss Cvss
	if v3 := record.Impact.MetricV3; v3 != nil {
		cvss.V3 = &CvssData{
			VectorString: v3.Cvss.VectorString,
			BaseScore:    v3.Cvss.BaseScore,
			ImpactScore:  v3.ImpactScore,
			Severity:     v3.Cvss.BaseSeverity,
		}
	}
	if v2 := record.Impact.MetricV2; v2 != nil {
		cvss.V2 = &CvssData{
			VectorString: v2.Cvss.VectorString,
			BaseScore:    v2.Cvss.BaseScore,
			ImpactScore:  v2.ImpactScore,
			Severity:     v2.Severity,
		}
	}

	problems := record.Problems()
	if problems == nil {
		problems = []string{}
	}

	return MatchedCVE{
		Cve:              record.ID(),
		Source:           row.Source,
		Vendor:           row.Vendor,
		Product:          row.Product,
		Summary:          record.Summary(),
		References:       references,
		Problems:         problems,
		PublishedDate:    record.PublishedDate,
		LastModifiedDate: record.LastModifiedDate,
		Cvss:             cvss,
	}
}
