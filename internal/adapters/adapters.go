// Package adapters locates and downloads the price files each chain
// publishes for a given date. Every chain exposes its files through a
// different mechanism; one adapter per listing strategy hides that
// behind a single interface.
package adapters

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/491415/PMCT/internal/vendors"
)

// ManifestEntry is one downloadable price file resolved for a date.
// Filename is the bare name without extension, the way the chains'
// naming conventions are parsed downstream. ZipName is set when the
// file arrived inside a date archive.
type ManifestEntry struct {
	URL      string
	Filename string
	ZipName  string
}

// FetchMeta carries transfer details for logging.
type FetchMeta struct {
	StatusCode int
	Latency    time.Duration
}

// SourceAdapter resolves the file manifest for a publication date and
// fetches individual entries.
type SourceAdapter interface {
	Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error)
	Fetch(ctx context.Context, entry ManifestEntry) ([]byte, FetchMeta, error)
}

// NotFoundError means the chain published nothing for the date.
type NotFoundError struct {
	Vendor string
	Date   time.Time
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no files published for %s", e.Vendor, e.Date.Format("02.01.2006"))
}

// TransportError wraps a failed HTTP exchange.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// New builds the adapter for a chain descriptor.
func New(desc vendors.Descriptor, client *Client) (SourceAdapter, error) {
	switch desc.Name {
	case "KONZUM":
		return newPaginatedAdapter(desc, client), nil
	case "BOSO":
		return newNonceAdapter(desc, client), nil
	case "TOMMY":
		return newTommyAdapter(desc, client, tommyAPI), nil
	case "SPAR":
		return newSparAdapter(desc, client, sparFileURL), nil
	case "KAUFLAND":
		return newKauflandAdapter(desc, client), nil
	case "DM":
		return newDMAdapter(desc, client, dmContentBase), nil
	case "LIDL":
		return newArchiveAdapter(desc, client, archiveLink(tokenUnderscoreDMY, ".zip")), nil
	case "PLODINE":
		return newArchiveAdapter(desc, client, archiveLink(tokenUnderscoreDMY, ".zip")), nil
	case "STUDENAC":
		return newArchiveAdapter(desc, client, archiveLink(tokenISO, ".zip")), nil
	case "EUROSPIN":
		return newArchiveAdapter(desc, client, archiveOption(tokenDotted)), nil
	case "KTC":
		return newTwoLevelAdapter(desc, client, ktcSubpages), nil
	case "RIBOLA":
		return newTwoLevelAdapter(desc, client, ribolaSubpages), nil
	case "NTL":
		return newNTLAdapter(desc, client), nil
	case "METRO":
		return newStaticAdapter(desc, client, staticRule{token: tokenYMD, joinWith: desc.ListURL}), nil
	case "VRUTAK":
		return newStaticAdapter(desc, client, staticRule{token: tokenYMD, joinWith: desc.ListURL}), nil
	case "TRGOVINA KRK":
		return newStaticAdapter(desc, client, staticRule{token: tokenDMY, joinWith: desc.ListURL}), nil
	case "TRGOCENTAR":
		return newStaticAdapter(desc, client, staticRule{token: tokenDMY, joinWith: desc.ListURL + "/"}), nil
	case "ŽABAC":
		return newStaticAdapter(desc, client, staticRule{token: tokenDotted, joinWith: desc.ListURL}), nil
	}
	return nil, fmt.Errorf("no adapter for vendor %q", desc.Name)
}

// Production endpoints not derivable from the listing page.
const (
	tommyAPI      = "https://spiza.tommy.hr"
	sparFileURL   = "https://www.spar.hr/datoteke_cjenici"
	dmContentBase = "https://content.services.dmtech.com/rootpage-dm-shop-hr-hr"
)

// Date token formats the chains embed in file names and links.
func tokenDotted(d time.Time) string        { return d.Format("02.01.2006") }
func tokenDMY(d time.Time) string           { return d.Format("02012006") }
func tokenYMD(d time.Time) string           { return d.Format("20060102") }
func tokenISO(d time.Time) string           { return d.Format("2006-01-02") }
func tokenUnderscoreDMY(d time.Time) string { return d.Format("02_01_2006") }

// tokenStripped renders the date without leading zeros, the style dm
// uses in download headlines.
func tokenStripped(d time.Time) string { return d.Format("2.1.2006") }

// fileStem extracts the bare file name, without directory, query or
// extension, from a download URL.
func fileStem(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	base := path.Base(u.Path)
	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// joinURL resolves href against base, tolerating absolute hrefs.
func joinURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// encodeURLPath rebuilds a URL with a percent-encoded path, dropping
// query and fragment. Some chains link file paths with raw spaces.
func encodeURLPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	clean := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	return clean.String()
}

// urlFetcher is the default Fetch implementation for adapters whose
// manifest entries are plain URLs.
type urlFetcher struct {
	client *Client
}

func (f *urlFetcher) Fetch(ctx context.Context, entry ManifestEntry) ([]byte, FetchMeta, error) {
	return f.client.Get(ctx, entry.URL)
}
