package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/491415/PMCT/internal/vendors"
)

// nonceRx pulls the AJAX nonce out of the inline script on the listing
// page.
var nonceRx = regexp.MustCompile(`marketshop_csv_ajax\s*=\s*{.*?"nonce"\s*:\s*"([a-zA-Z0-9]+)"`)

// nonceAdapter serves a WordPress listing: today's files are plain
// anchors, older dates require a nonce-guarded per-store POST that
// returns an HTML fragment with one row per published file.
type nonceAdapter struct {
	urlFetcher
	desc    vendors.Descriptor
	ajaxURL string
	now     func() time.Time
}

func newNonceAdapter(desc vendors.Descriptor, client *Client) *nonceAdapter {
	return &nonceAdapter{
		urlFetcher: urlFetcher{client},
		desc:       desc,
		ajaxURL:    desc.BaseURL + "/wp-admin/admin-ajax.php",
		now:        time.Now,
	}
}

func (a *nonceAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	body, _, err := a.client.Get(ctx, a.desc.ListURL)
	if err != nil {
		return nil, err
	}
	if sameDay(date, a.now()) {
		return a.resolveCurrent(body, date)
	}
	return a.resolvePast(ctx, body, date)
}

func (a *nonceAdapter) resolveCurrent(body []byte, date time.Time) ([]ManifestEntry, error) {
	hrefs, err := anchorHrefs(body)
	if err != nil {
		return nil, err
	}
	token := tokenDotted(date)
	var entries []ManifestEntry
	for _, href := range hrefs {
		if !strings.Contains(href, token) {
			continue
		}
		full := joinURL(a.desc.ListURL, href)
		entries = append(entries, ManifestEntry{URL: full, Filename: fileStem(full)})
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

func (a *nonceAdapter) resolvePast(ctx context.Context, body []byte, date time.Time) ([]ManifestEntry, error) {
	stores, err := optionValues(body, func(n *html.Node) bool {
		return attrVal(n, "id") == "marketshop-filter"
	})
	if err != nil {
		return nil, err
	}
	m := nonceRx.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("%s: nonce not found on listing page", a.desc.Name)
	}
	nonce := string(m[1])

	token := tokenDotted(date)
	var entries []ManifestEntry
	for _, store := range stores {
		data := url.Values{
			"action":     {"filter_by_marketshop"},
			"marketshop": {store},
			"nonce":      {nonce},
		}
		resp, _, err := a.client.PostForm(ctx, a.ajaxURL, data)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Data struct {
				HTML string `json:"html"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp, &payload); err != nil {
			return nil, fmt.Errorf("parse store listing: %w", err)
		}
		href, ok, err := a.fileForDate([]byte(payload.Data.HTML), token)
		if err != nil {
			return nil, err
		}
		if ok {
			full := joinURL(a.desc.ListURL, href)
			entries = append(entries, ManifestEntry{URL: full, Filename: fileStem(full)})
		}
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

// fileForDate scans the returned file table for the first row whose
// date cell matches and returns its download link.
func (a *nonceAdapter) fileForDate(fragment []byte, token string) (string, bool, error) {
	root, err := parseHTML(fragment)
	if err != nil {
		return "", false, err
	}
	tables := findAll(root, func(n *html.Node) bool {
		return n.Data == "table" && hasClass(n, "marketshop-files-table")
	})
	if len(tables) == 0 {
		return "", false, nil
	}
	for _, row := range findAll(tables[0], func(n *html.Node) bool { return n.Data == "tr" }) {
		cells := findAll(row, func(n *html.Node) bool { return n.Data == "td" })
		if len(cells) < 3 {
			continue
		}
		if strings.TrimSpace(nodeText(cells[2])) != token {
			continue
		}
		links := findAll(row, func(n *html.Node) bool {
			return n.Data == "a" && hasAttr(n, "href")
		})
		if len(links) > 0 {
			return attrVal(links[0], "href"), true, nil
		}
	}
	return "", false, nil
}
