package adapters

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/491415/PMCT/internal/vendors"
)

// archiveLocator finds the archive link for a date on the listing
// page.
type archiveLocator func(body []byte, listURL string, date time.Time) (string, bool, error)

// archiveLink locates an anchor whose href carries the date token and
// the given suffix.
func archiveLink(token func(time.Time) string, suffix string) archiveLocator {
	return func(body []byte, listURL string, date time.Time) (string, bool, error) {
		hrefs, err := anchorHrefs(body)
		if err != nil {
			return "", false, err
		}
		var found string
		for _, href := range hrefs {
			if strings.Contains(href, token(date)) && strings.HasSuffix(href, suffix) {
				found = joinURL(listURL, href)
			}
		}
		return found, found != "", nil
	}
}

// archiveOption locates the archive through a dropdown whose option
// values are download links carrying the date.
func archiveOption(token func(time.Time) string) archiveLocator {
	return func(body []byte, listURL string, date time.Time) (string, bool, error) {
		values, err := optionValues(body, nil)
		if err != nil {
			return "", false, err
		}
		var found string
		for _, v := range values {
			if strings.Contains(v, token(date)) {
				found = joinURL(listURL, v)
			}
		}
		return found, found != "", nil
	}
}

// archiveAdapter serves the chains that bundle all store files for a
// date into one zip. The archive is downloaded once during Resolve;
// Fetch reads entries out of the cached archive.
type archiveAdapter struct {
	desc    vendors.Descriptor
	client  *Client
	locator archiveLocator

	zipName string
	reader  *zip.Reader
}

func newArchiveAdapter(desc vendors.Descriptor, client *Client, locator archiveLocator) *archiveAdapter {
	return &archiveAdapter{desc: desc, client: client, locator: locator}
}

func (a *archiveAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	body, _, err := a.client.Get(ctx, a.desc.ListURL)
	if err != nil {
		return nil, err
	}
	zipURL, ok, err := a.locator(body, a.desc.ListURL, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}

	archive, _, err := a.client.Get(ctx, zipURL)
	if err != nil {
		return nil, err
	}
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", zipURL, err)
	}
	a.reader = reader
	a.zipName = fileStem(zipURL)

	var entries []ManifestEntry
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(f.Name)
		entries = append(entries, ManifestEntry{
			URL:      zipURL,
			Filename: strings.TrimSuffix(name, path.Ext(name)),
			ZipName:  a.zipName,
		})
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

func (a *archiveAdapter) Fetch(ctx context.Context, entry ManifestEntry) ([]byte, FetchMeta, error) {
	if a.reader == nil {
		return nil, FetchMeta{}, fmt.Errorf("%s: archive not resolved", a.desc.Name)
	}
	for _, f := range a.reader.File {
		name := path.Base(f.Name)
		if strings.TrimSuffix(name, path.Ext(name)) != entry.Filename {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, FetchMeta{}, fmt.Errorf("open archive entry %s: %w", f.Name, err)
		}
		defer rc.Close()
		body, err := io.ReadAll(rc)
		if err != nil {
			return nil, FetchMeta{}, fmt.Errorf("read archive entry %s: %w", f.Name, err)
		}
		return body, FetchMeta{}, nil
	}
	return nil, FetchMeta{}, fmt.Errorf("%s: entry %s not in archive", a.desc.Name, entry.Filename)
}
