// Package nvd mirrors the NIST NVD 1.1 JSON feeds into the store.
package nvd

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/CodeClarityCE/service-cvesearch/src/nist"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/metrics"
	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

const feedURLTemplate = "https://nvd.nist.gov/feeds/json/cve/%s/nvdcve-%s-%d.json.gz"

const maxRetries = 5

// Download fetches the yearly feed file, extracts it and decodes the
// records. Incomplete records (no configuration nodes yet) are
// dropped. When refresh is set, cached files are removed first.
func Download(year int, dataPath string, refresh bool) ([]nist.CVE, error) {
	jsonName := filepath.Join(dataPath, fmt.Sprintf("nvdcve-%s-%d.json", nist.FeedVersion, year))
	gzipName := jsonName + ".gz"

	if refresh {
		for _, name := range []string{gzipName, jsonName} {
			if _, err := os.Stat(name); err == nil {
				logrus.Infof("removing %s", name)
				if err := os.Remove(name); err != nil {
					return nil, fmt.Errorf("could not remove %s: %w", name, err)
				}
			}
		}
	}

	if _, err := os.Stat(jsonName); err != nil {
		if _, err := os.Stat(gzipName); err != nil {
			url := fmt.Sprintf(feedURLTemplate, nist.FeedVersion, nist.FeedVersion, year)
			if err := downloadToFile(url, gzipName); err != nil {
				return nil, err
			}
		} else {
			logrus.Infof("found %s", gzipName)
		}
		if err := gunzip(gzipName, jsonName); err != nil {
			return nil, err
		}
	} else {
		logrus.Infof("found %s", jsonName)
	}

	logrus.Infof("reading %s ...", jsonName)
	start := time.Now()

	records, err := readRecordsFromFile(jsonName)
	if err != nil {
		return nil, err
	}

	logrus.Infof("loaded %d CVEs in %v", len(records), time.Since(start))
	return records, nil
}

// Import writes the records into the store, purging nothing: existing
// rows are kept and only new (vendor, product, cve_id) tuples are
// created. Returns the number of new rows.
func Import(db *bun.DB, records []nist.CVE) (int, error) {
	logrus.Infof("importing %d records ...", len(records))

	bar := progressbar.Default(int64(len(records)))
	imported := 0

	// batches keep transactions small enough to retry cheaply
	const batchSize = 500
	for offset := 0; offset < len(records); offset += batchSize {
		end := offset + batchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := pgsql.ImportNvd(db, records[offset:end])
		if err != nil {
			return imported, err
		}
		imported += n
		bar.Add(end - offset)
	}

	metrics.RecordImport(nist.SourceName, imported)
	return imported, nil
}

// Update refreshes the current year's feed. This is the daemon path:
// the NVD republishes the running year with modified records folded
// in.
func Update(db *bun.DB, dataPath string) error {
	logrus.Info("Start updating NVD")

	year := time.Now().Year()
	records, err := Download(year, dataPath, true)
	if err != nil {
		return err
	}

	imported, err := Import(db, records)
	if err != nil {
		return err
	}

	if imported == 0 {
		logrus.Info("No new records created")
	} else {
		logrus.Infof("%d new records created", imported)
	}
	return nil
}

func downloadToFile(url, fileName string) error {
	logrus.Infof("downloading %s to %s ...", url, fileName)

	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return fmt.Errorf("could not create %s: %w", filepath.Dir(fileName), err)
	}

	var resp *http.Response
	var err error
	for retries := 0; retries < maxRetries; retries++ {
		resp, err = http.Get(url)
		if err != nil {
			logrus.Warnf("error executing request: %v, retrying... (%d/%d)", err, retries+1, maxRetries)
			time.Sleep(time.Duration(2<<retries) * time.Second)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			logrus.Warnf("rate limit exceeded, retrying... (%d/%d)", retries+1, maxRetries)
			time.Sleep(time.Duration(2<<retries) * time.Second)
			resp = nil
			continue
		}
		break
	}
	if err != nil {
		return fmt.Errorf("error downloading %s: %w", url, err)
	}
	if resp == nil {
		return fmt.Errorf("max retries reached, unable to fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status for %s: %s", url, resp.Status)
	}

	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", fileName, err)
	}
	defer file.Close()

	bar := progressbar.DefaultBytes(resp.ContentLength, "downloading")
	_, err = io.Copy(io.MultiWriter(file, bar), resp.Body)
	if err != nil {
		return fmt.Errorf("could not download %s: %w", fileName, err)
	}

	return nil
}

func gunzip(from, to string) error {
	logrus.Infof("extracting %s to %s ...", from, to)

	source, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", from, err)
	}
	defer source.Close()

	archive, err := gzip.NewReader(source)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", from, err)
	}
	defer archive.Close()

	dest, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", to, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, archive); err != nil {
		return fmt.Errorf("could not extract %s: %w", from, err)
	}

	return nil
}

func readRecordsFromFile(path string) ([]nist.CVE, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	var container nist.Container
	if err := json.NewDecoder(file).Decode(&container); err != nil {
		return nil, fmt.Errorf("failed to parse cve file from %s: %w", path, err)
	}

	// records without configurations are still being processed by NIST
	records := make([]nist.CVE, 0, len(container.CVEItems))
	for i := range container.CVEItems {
		if container.CVEItems[i].IsComplete() {
			records = append(records, container.CVEItems[i])
		}
	}

	return records, nil
}
