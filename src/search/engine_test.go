package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeClarityCE/service-cvesearch/src/nist"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

// spyStore counts candidate fetches and serves a fixed candidate set.
type spyStore struct {
	calls      int
	candidates []pgsql.Cve
	err        error
}

func (s *spyStore) FetchCandidates(ctx context.Context, vendor, product string) ([]pgsql.Cve, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	var out []pgsql.Cve
	for _, candidate := range s.candidates {
		if candidate.Product != product {
			continue
		}
		if vendor != "" && candidate.Vendor != vendor {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

func recordJSON(t *testing.T, raw string) string {
	t.Helper()
	var record nist.CVE
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	data, err := json.Marshal(&record)
	require.NoError(t, err)
	return string(data)
}

func opensslCandidate(t *testing.T) pgsql.Cve {
	data := recordJSON(t, `{
		"cve": {
			"CVE_data_meta": {"ID": "CVE-2016-0800"},
			"references": {"reference_data": [{"url": "https://www.openssl.org/news/secadv/20160301.txt", "name": "advisory", "tags": ["Vendor Advisory"]}]},
			"description": {"description_data": [{"lang": "en", "value": "DROWN attack"}]},
			"problemtype": {"problemtype_data": [{"description": [{"lang": "en", "value": "CWE-310"}]}]}
		},
		"impact": {
			"baseMetricV3": {
				"cvssV3": {
					"version": "3.0",
					"vectorString": "CVSS:3.0/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N",
					"attackVector": "NETWORK",
					"attackComplexity": "HIGH",
					"privilegesRequired": "NONE",
					"userInteraction": "NONE",
					"scope": "UNCHANGED",
					"confidentialityImpact": "HIGH",
					"integrityImpact": "NONE",
					"availabilityImpact": "NONE",
					"baseScore": 5.9,
					"baseSeverity": "MEDIUM"
				},
				"exploitabilityScore": 2.2,
				"impactScore": 3.6
			}
		},
		"configurations": {
			"CVE_data_version": "4.0",
			"nodes": [{
				"operator": "OR",
				"children": [],
				"cpe_match": [{"vulnerable": true, "cpe23Uri": "cpe:2.3:a:openssl:openssl:1.0.1:*:*:*:*:*:*:*"}]
			}]
		},
		"publishedDate": "2016-03-01T20:59Z",
		"lastModifiedDate": "2021-04-06T18:22Z"
	}`)

	return pgsql.Cve{
		Source:  nist.SourceName,
		Vendor:  "openssl",
		Product: "openssl",
		CveId:   "CVE-2016-0800",
		Object:  &pgsql.Object{CveId: "CVE-2016-0800", Data: data},
	}
}

func rangedCandidate(t *testing.T) pgsql.Cve {
	data := recordJSON(t, `{
		"cve": {
			"CVE_data_meta": {"ID": "CVE-2020-1234"},
			"references": {"reference_data": []},
			"description": {"description_data": [{"lang": "en", "value": "range vulnerability"}]},
			"problemtype": {"problemtype_data": []}
		},
		"impact": {},
		"configurations": {
			"CVE_data_version": "4.0",
			"nodes": [{
				"operator": "OR",
				"children": [],
				"cpe_match": [{
					"vulnerable": true,
					"cpe23Uri": "cpe:2.3:a:acme:foo:*:*:*:*:*:*:*:*",
					"versionStartIncluding": "1.0",
					"versionEndExcluding": "2.0"
				}]
			}]
		},
		"publishedDate": "2020-01-01T00:00Z",
		"lastModifiedDate": "2020-01-02T00:00Z"
	}`)

	return pgsql.Cve{
		Source:  nist.SourceName,
		Vendor:  "acme",
		Product: "foo",
		CveId:   "CVE-2020-1234",
		Object:  &pgsql.Object{CveId: "CVE-2020-1234", Data: data},
	}
}

func nodeTarCandidate(t *testing.T) pgsql.Cve {
	data := recordJSON(t, `{
		"cve": {
			"CVE_data_meta": {"ID": "CVE-2021-5678"},
			"references": {"reference_data": []},
			"description": {"description_data": [{"lang": "en", "value": "node-tar traversal"}]},
			"problemtype": {"problemtype_data": []}
		},
		"impact": {},
		"configurations": {
			"CVE_data_version": "4.0",
			"nodes": [{
				"operator": "OR",
				"children": [],
				"cpe_match": [{"vulnerable": true, "cpe23Uri": "cpe:2.3:a:vendor:tar:*:*:*:*:*:node.js:*:*"}]
			}]
		},
		"publishedDate": "2021-01-01T00:00Z",
		"lastModifiedDate": "2021-01-02T00:00Z"
	}`)

	return pgsql.Cve{
		Source:  nist.SourceName,
		Vendor:  "vendor",
		Product: "tar",
		CveId:   "CVE-2021-5678",
		Object:  &pgsql.Object{CveId: "CVE-2021-5678", Data: data},
	}
}

func newTestEngine(store Store) *Engine {
	return NewEngine(store, NewResultCache(16))
}

func TestQueryMatchesExactVersion(t *testing.T) {
	store := &spyStore{candidates: []pgsql.Cve{opensslCandidate(t)}}
	engine := newTestEngine(store)

	matches, err := engine.Query(context.Background(), Query{Product: "openssl", Version: "1.0.1"})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, "CVE-2016-0800", match.Cve)
	assert.Equal(t, "NIST", match.Source)
	assert.Equal(t, "openssl", match.Vendor)
	assert.Equal(t, "openssl", match.Product)
	assert.Equal(t, "DROWN attack", match.Summary)
	assert.Equal(t, []string{"CWE-310"}, match.Problems)
	require.NotNil(t, match.Cvss.V3)
	assert.Equal(t, 5.9, match.Cvss.V3.BaseScore)
	assert.Equal(t, "MEDIUM", match.Cvss.V3.Severity)
	assert.Nil(t, match.Cvss.V2)

	matches, err = engine.Query(context.Background(), Query{Product: "openssl", Version: "1.0.2"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryVersionRange(t *testing.T) {
	store := &spyStore{candidates: []pgsql.Cve{rangedCandidate(t)}}
	engine := newTestEngine(store)

	matches, err := engine.Query(context.Background(), Query{Vendor: "acme", Product: "foo", Version: "1.9.9"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = engine.Query(context.Background(), Query{Vendor: "acme", Product: "foo", Version: "2.0"})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = engine.Query(context.Background(), Query{Vendor: "acme", Product: "foo", Version: "0.9"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

// stubStore returns every candidate regardless of the query, so the
// matcher alone decides.
type stubStore struct {
	calls      int
	candidates []pgsql.Cve
}

func (s *stubStore) FetchCandidates(ctx context.Context, vendor, product string) ([]pgsql.Cve, error) {
	s.calls++
	return s.candidates, nil
}

func TestQueryTargetSoftwareDisambiguation(t *testing.T) {
	// the record pairs product=tar with target_sw=node.js: the naive
	// name must not match, the composed one must
	store := &stubStore{candidates: []pgsql.Cve{nodeTarCandidate(t)}}
	engine := newTestEngine(store)

	matches, err := engine.Query(context.Background(), Query{Product: "tar", Version: "6.1.0"})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = engine.Query(context.Background(), Query{Product: "node-tar", Version: "6.1.0"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "CVE-2021-5678", matches[0].Cve)
	// the response carries the stored key, not the composed name
	assert.Equal(t, "tar", matches[0].Product)
	assert.Equal(t, "vendor", matches[0].Vendor)
}

func TestQueryInvalidVersionSkipsStorage(t *testing.T) {
	store := &spyStore{candidates: []pgsql.Cve{opensslCandidate(t)}}
	engine := newTestEngine(store)

	_, err := engine.Query(context.Background(), Query{Product: "x", Version: "not a version"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Equal(t, 0, store.calls)
}

func TestQueryCachesResults(t *testing.T) {
	store := &spyStore{candidates: []pgsql.Cve{opensslCandidate(t)}}
	engine := newTestEngine(store)
	query := Query{Product: "openssl", Version: "1.0.1"}

	first, err := engine.Query(context.Background(), query)
	require.NoError(t, err)

	second, err := engine.Query(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls)
}

func TestQueryCachePurgeRefetches(t *testing.T) {
	store := &spyStore{candidates: []pgsql.Cve{opensslCandidate(t)}}
	engine := newTestEngine(store)
	query := Query{Product: "openssl", Version: "1.0.1"}

	_, err := engine.Query(context.Background(), query)
	require.NoError(t, err)

	engine.Cache().Purge()

	_, err = engine.Query(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestQueryUnsupportedSource(t *testing.T) {
	candidate := opensslCandidate(t)
	candidate.Source = "OSV"
	store := &spyStore{candidates: []pgsql.Cve{candidate}}
	engine := newTestEngine(store)

	_, err := engine.Query(context.Background(), Query{Product: "openssl", Version: "1.0.1"})
	var unsupported *UnsupportedSourceError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "OSV", unsupported.Source)
}

func TestQueryDeserializationFailureAborts(t *testing.T) {
	good := opensslCandidate(t)
	bad := opensslCandidate(t)
	bad.CveId = "CVE-9999-0001"
	bad.Object = &pgsql.Object{CveId: "CVE-9999-0001", Data: "{not json"}
	store := &spyStore{candidates: []pgsql.Cve{good, bad}}
	engine := newTestEngine(store)

	_, err := engine.Query(context.Background(), Query{Product: "openssl", Version: "1.0.1"})
	var deser *DeserializationError
	require.ErrorAs(t, err, &deser)
	assert.Equal(t, "CVE-9999-0001", deser.CveId)
}

func TestQueryStorageErrorPropagates(t *testing.T) {
	storageErr := errors.New("connection reset")
	store := &spyStore{err: storageErr}
	engine := newTestEngine(store)

	_, err := engine.Query(context.Background(), Query{Product: "openssl", Version: "1.0.1"})
	assert.ErrorIs(t, err, storageErr)
}

func TestQueryVendorNarrowsCandidates(t *testing.T) {
	store := &spyStore{candidates: []pgsql.Cve{rangedCandidate(t)}}
	engine := newTestEngine(store)

	matches, err := engine.Query(context.Background(), Query{Vendor: "other", Product: "foo", Version: "1.5"})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = engine.Query(context.Background(), Query{Vendor: "acme", Product: "foo", Version: "1.5"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
