package nvd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `{
	"CVE_data_type": "CVE",
	"CVE_data_format": "MITRE",
	"CVE_data_version": "4.0",
	"CVE_data_numberOfCVEs": "2",
	"CVE_data_timestamp": "2021-05-13T07:00Z",
	"CVE_Items": [
		{
			"cve": {
				"CVE_data_meta": {"ID": "CVE-2021-0001"},
				"references": {"reference_data": []},
				"description": {"description_data": [{"lang": "en", "value": "complete record"}]},
				"problemtype": {"problemtype_data": []}
			},
			"impact": {},
			"configurations": {
				"CVE_data_version": "4.0",
				"nodes": [{
					"operator": "OR",
					"children": [],
					"cpe_match": [{"vulnerable": true, "cpe23Uri": "cpe:2.3:a:acme:foo:1.0:*:*:*:*:*:*:*"}]
				}]
			},
			"publishedDate": "2021-01-01T00:00Z",
			"lastModifiedDate": "2021-01-02T00:00Z"
		},
		{
			"cve": {
				"CVE_data_meta": {"ID": "CVE-2021-0002"},
				"references": {"reference_data": []},
				"description": {"description_data": [{"lang": "en", "value": "still being processed"}]},
				"problemtype": {"problemtype_data": []}
			},
			"impact": {},
			"configurations": {"CVE_data_version": "4.0", "nodes": []},
			"publishedDate": "2021-01-01T00:00Z",
			"lastModifiedDate": "2021-01-02T00:00Z"
		}
	]
}`

func TestReadRecordsFiltersIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvdcve-1.1-2021.json")
	require.NoError(t, os.WriteFile(path, []byte(feedFixture), 0o644))

	records, err := readRecordsFromFile(path)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "CVE-2021-0001", records[0].ID())
}

func TestReadRecordsRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvdcve-1.1-2021.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := readRecordsFromFile(path)
	assert.Error(t, err)
}

func TestReadRecordsMissingFile(t *testing.T) {
	_, err := readRecordsFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
