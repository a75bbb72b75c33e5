package cwe

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/CodeClarityCE/service-cvesearch/src/utilities/pgsql"
)

type weaknessCatalog struct {
	Weaknesses struct {
		Weaknesses []weakness `xml:"Weakness"`
	} `xml:"Weaknesses"`
}

type weakness struct {
	ID          string `xml:"ID,attr"`
	Name        string `xml:"Name,attr"`
	Abstraction string `xml:"Abstraction,attr"`
	Status      string `xml:"Status,attr"`
	Description string `xml:"Description"`
}

// downloadCwes fetches the zipped XML catalog and flattens it into
// store entries.
func downloadCwes(url string) ([]pgsql.Cwe, error) {
	catalog, err := downloadCatalog(url)
	if err != nil {
		return nil, err
	}

	entries := make([]pgsql.Cwe, 0, len(catalog.Weaknesses.Weaknesses))
	for _, w := range catalog.Weaknesses.Weaknesses {
		entries = append(entries, pgsql.Cwe{
			CweId:       w.ID,
			Name:        w.Name,
			Abstraction: w.Abstraction,
			Status:      w.Status,
			Description: cleanString(w.Description),
		})
	}

	return entries, nil
}

func downloadCatalog(url string) (weaknessCatalog, error) {
	resp, err := http.Get(url)
	if err != nil {
		return weaknessCatalog{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return weaknessCatalog{}, fmt.Errorf("unexpected response status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return weaknessCatalog{}, err
	}

	zipReader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return weaknessCatalog{}, err
	}
	if len(zipReader.File) == 0 {
		return weaknessCatalog{}, fmt.Errorf("empty catalog archive")
	}

	// the archive holds a single XML file
	zipped, err := zipReader.File[0].Open()
	if err != nil {
		return weaknessCatalog{}, err
	}
	defer zipped.Close()

	content, err := io.ReadAll(zipped)
	if err != nil {
		return weaknessCatalog{}, err
	}

	var catalog weaknessCatalog
	if err := xml.Unmarshal(content, &catalog); err != nil {
		return weaknessCatalog{}, err
	}
	return catalog, nil
}

var whitespace = regexp.MustCompile(`\s+`)

func cleanString(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
