package pgsql_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeClarityCE/service-cvesearch/src/nist"
	"github.com/CodeClarityCE/service-cvesearch/src/testhelper"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

const recordFixture = `{
	"cve": {
		"CVE_data_meta": {"ID": "CVE-2016-0800"},
		"references": {"reference_data": [{"url": "https://www.openssl.org/news/secadv/20160301.txt", "name": "advisory", "tags": ["Vendor Advisory"]}]},
		"description": {"description_data": [{"lang": "en", "value": "DROWN attack"}]},
		"problemtype": {"problemtype_data": [{"description": [{"lang": "en", "value": "CWE-310"}]}]}
	},
	"impact": {},
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
}`

func TestImportAndFetchRoundTrip(t *testing.T) {
	db, cleanup := testhelper.SetupTestDB(t)
	if db == nil {
		return // test was skipped
	}
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, pgsql.CreateTables(ctx, db))
	defer pgsql.DeleteCve(ctx, db, "openssl", "openssl", "CVE-2016-0800")

	var record nist.CVE
	require.NoError(t, json.Unmarshal([]byte(recordFixture), &record))

	imported, err := pgsql.ImportNvd(db, []nist.CVE{record})
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	// re-import creates nothing new
	imported, err = pgsql.ImportNvd(db, []nist.CVE{record})
	require.NoError(t, err)
	assert.Equal(t, 0, imported)

	candidates, err := pgsql.FetchCandidates(ctx, db, "", "openssl")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "CVE-2016-0800", candidates[0].CveId)
	assert.Equal(t, "openssl", candidates[0].Vendor)
	require.NotNil(t, candidates[0].Object)

	var stored nist.CVE
	require.NoError(t, json.Unmarshal([]byte(candidates[0].Object.Data), &stored))
	assert.Equal(t, "CVE-2016-0800", stored.ID())

	// vendor narrowing
	candidates, err = pgsql.FetchCandidates(ctx, db, "someone_else", "openssl")
	require.NoError(t, err)
	assert.Empty(t, candidates)

	products, err := pgsql.GetProducts(ctx, db)
	require.NoError(t, err)
	assert.Contains(t, products, pgsql.Product{Vendor: "openssl", Product: "openssl"})
}
