package adapters

import (
	"context"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/491415/PMCT/internal/vendors"
)

// staticRule describes how to pick file links off a plain listing
// page: the date token a link must contain and the base to resolve
// relative hrefs against.
type staticRule struct {
	token    func(time.Time) string
	suffix   string
	joinWith string
}

// staticAdapter serves the chains that publish all files as anchors on
// one listing page, date baked into the href.
type staticAdapter struct {
	urlFetcher
	desc vendors.Descriptor
	rule staticRule
}

func newStaticAdapter(desc vendors.Descriptor, client *Client, rule staticRule) *staticAdapter {
	return &staticAdapter{urlFetcher: urlFetcher{client}, desc: desc, rule: rule}
}

func (a *staticAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	body, _, err := a.client.Get(ctx, a.desc.ListURL)
	if err != nil {
		return nil, err
	}
	hrefs, err := anchorHrefs(body)
	if err != nil {
		return nil, err
	}

	token := a.rule.token(date)
	var entries []ManifestEntry
	for _, href := range hrefs {
		if !strings.Contains(href, token) {
			continue
		}
		if a.rule.suffix != "" && !strings.HasSuffix(href, a.rule.suffix) {
			continue
		}
		full := joinURL(a.rule.joinWith, href)
		entries = append(entries, ManifestEntry{URL: full, Filename: fileStem(full)})
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

// ntlAdapter handles the current/past split: today's files hang off
// the listing page directly, older dates sit behind a ?date= query
// that must first be offered by the page's date selector.
type ntlAdapter struct {
	urlFetcher
	desc vendors.Descriptor
	now  func() time.Time
}

func newNTLAdapter(desc vendors.Descriptor, client *Client) *ntlAdapter {
	return &ntlAdapter{urlFetcher: urlFetcher{client}, desc: desc, now: time.Now}
}

func (a *ntlAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	body, _, err := a.client.Get(ctx, a.desc.ListURL)
	if err != nil {
		return nil, err
	}

	if !sameDay(date, a.now()) {
		iso := tokenISO(date)
		values, err := optionValues(body, func(n *html.Node) bool {
			return attrVal(n, "name") == "date"
		})
		if err != nil {
			return nil, err
		}
		if !contains(values, iso) {
			return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
		}
		body, _, err = a.client.Get(ctx, a.desc.ListURL+"?date="+iso)
		if err != nil {
			return nil, err
		}
	}

	hrefs, err := downloadHrefs(body)
	if err != nil {
		return nil, err
	}
	token := tokenDMY(date)
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

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
