package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/491415/PMCT/internal/vendors"
)

// tommyAdapter queries the shop API for the day's store price tables.
type tommyAdapter struct {
	urlFetcher
	desc vendors.Descriptor
	api  string
}

func newTommyAdapter(desc vendors.Descriptor, client *Client, api string) *tommyAdapter {
	return &tommyAdapter{urlFetcher: urlFetcher{client}, desc: desc, api: api}
}

func (a *tommyAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	listURL := fmt.Sprintf("%s/api/v2/shop/store-prices-tables?itemsPerPage=200&date=%s", a.api, tokenISO(date))
	body, _, err := a.client.Get(ctx, listURL)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Member []struct {
			ID string `json:"@id"`
		} `json:"hydra:member"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse price table listing: %w", err)
	}
	var entries []ManifestEntry
	for _, m := range payload.Member {
		full := a.api + m.ID
		entries = append(entries, ManifestEntry{URL: full, Filename: fileStem(full)})
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

// sparAdapter fetches a per-date JSON index that names every store
// file; a 404 on the index means nothing was published for the date.
type sparAdapter struct {
	urlFetcher
	desc    vendors.Descriptor
	fileURL string
}

func newSparAdapter(desc vendors.Descriptor, client *Client, fileURL string) *sparAdapter {
	return &sparAdapter{urlFetcher: urlFetcher{client}, desc: desc, fileURL: fileURL}
}

func (a *sparAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	indexURL := fmt.Sprintf("%s/Cjenik%s.json", a.fileURL, tokenYMD(date))
	body, meta, err := a.client.Get(ctx, indexURL)
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) && meta.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
		}
		return nil, err
	}
	var payload struct {
		Files []struct {
			URL string `json:"URL"`
		} `json:"files"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse file index: %w", err)
	}
	var entries []ManifestEntry
	for _, f := range payload.Files {
		entries = append(entries, ManifestEntry{URL: f.URL, Filename: fileStem(f.URL)})
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

// kauflandAdapter reads the asset-search JSON behind the listing URL;
// asset paths are percent-encoded and filtered by the date token they
// carry.
type kauflandAdapter struct {
	urlFetcher
	desc vendors.Descriptor
}

func newKauflandAdapter(desc vendors.Descriptor, client *Client) *kauflandAdapter {
	return &kauflandAdapter{urlFetcher: urlFetcher{client}, desc: desc}
}

func (a *kauflandAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	body, _, err := a.client.Get(ctx, a.desc.ListURL)
	if err != nil {
		return nil, err
	}
	var items []struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse asset list: %w", err)
	}

	token := tokenDMY(date)
	var entries []ManifestEntry
	for _, item := range items {
		if item.Path == "" {
			continue
		}
		full := joinURL(a.desc.BaseURL, escapePath(item.Path))
		if !strings.Contains(full, token) {
			continue
		}
		entries = append(entries, ManifestEntry{URL: full, Filename: fileStem(full)})
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

// escapePath percent-encodes each path segment, keeping the slashes.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// dmAdapter picks the single spreadsheet link out of the content-page
// JSON; the download block's headline carries the date without leading
// zeros.
type dmAdapter struct {
	urlFetcher
	desc        vendors.Descriptor
	contentBase string
}

func newDMAdapter(desc vendors.Descriptor, client *Client, contentBase string) *dmAdapter {
	return &dmAdapter{urlFetcher: urlFetcher{client}, desc: desc, contentBase: contentBase}
}

func (a *dmAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	body, _, err := a.client.Get(ctx, a.desc.ListURL)
	if err != nil {
		return nil, err
	}
	var payload struct {
		MainData []struct {
			Type string `json:"type"`
			Data struct {
				Headline   string `json:"headline"`
				LinkTarget string `json:"linkTarget"`
			} `json:"data"`
		} `json:"mainData"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse content page: %w", err)
	}

	token := tokenStripped(date)
	var target string
	for _, item := range payload.MainData {
		if item.Type != "CMDownload" {
			continue
		}
		if strings.Contains(item.Data.Headline, token) {
			target = item.Data.LinkTarget
		}
	}
	if target == "" {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	full := a.contentBase + target
	return []ManifestEntry{{URL: full, Filename: fileStem(full)}}, nil
}
