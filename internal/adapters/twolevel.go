package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/491415/PMCT/internal/vendors"
)

// subpageResolver turns the top listing page into the set of
// second-level pages holding the actual file links, plus the filter
// applied to links found there.
type subpageResolver struct {
	// subpages extracts second-level page URLs from the top page.
	subpages func(body []byte, desc vendors.Descriptor, date time.Time) ([]string, error)
	// keep decides whether a second-level href is a price file for
	// the date.
	keep func(href string, date time.Time) bool
	// join resolves a kept href against the page it came from.
	join func(desc vendors.Descriptor, pageURL, href string) string
}

// ktcSubpages: every store has its own ?poslovnica= page; files are
// .csv links carrying a yyyymmdd token, with paths that need
// percent-encoding.
var ktcSubpages = subpageResolver{
	subpages: func(body []byte, desc vendors.Descriptor, _ time.Time) ([]string, error) {
		hrefs, err := anchorHrefs(body)
		if err != nil {
			return nil, err
		}
		var pages []string
		for _, href := range hrefs {
			if strings.HasPrefix(href, "cjenici?poslovnica=") {
				pages = append(pages, joinURL(desc.BaseURL, href))
			}
		}
		return pages, nil
	},
	keep: func(href string, date time.Time) bool {
		return strings.HasSuffix(href, ".csv") && strings.Contains(href, tokenYMD(date))
	},
	join: func(_ vendors.Descriptor, pageURL, href string) string {
		return encodeURLPath(joinURL(pageURL, href))
	},
}

// ribolaSubpages: the top page links one ?date= subpage per day whose
// anchors are the per-store .xml feeds.
var ribolaSubpages = subpageResolver{
	subpages: func(body []byte, desc vendors.Descriptor, date time.Time) ([]string, error) {
		hrefs, err := anchorHrefs(body)
		if err != nil {
			return nil, err
		}
		marker := "?date=" + tokenDotted(date)
		for _, href := range hrefs {
			if strings.Contains(href, marker) {
				return []string{joinURL(desc.ListURL, href)}, nil
			}
		}
		return nil, nil
	},
	keep: func(href string, _ time.Time) bool {
		return strings.HasSuffix(href, ".xml")
	},
	join: func(desc vendors.Descriptor, _, href string) string {
		return desc.ListURL + "/" + href
	},
}

// twoLevelAdapter serves listings where the files sit behind
// per-store or per-date subpages.
type twoLevelAdapter struct {
	urlFetcher
	desc     vendors.Descriptor
	resolver subpageResolver
}

func newTwoLevelAdapter(desc vendors.Descriptor, client *Client, resolver subpageResolver) *twoLevelAdapter {
	return &twoLevelAdapter{urlFetcher: urlFetcher{client}, desc: desc, resolver: resolver}
}

func (a *twoLevelAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	body, _, err := a.client.Get(ctx, a.desc.ListURL)
	if err != nil {
		return nil, err
	}
	pages, err := a.resolver.subpages(body, a.desc, date)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}

	seen := map[string]bool{}
	var entries []ManifestEntry
	for _, pageURL := range pages {
		sub, _, err := a.client.Get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		hrefs, err := anchorHrefs(sub)
		if err != nil {
			return nil, err
		}
		for _, href := range hrefs {
			if !a.resolver.keep(href, date) {
				continue
			}
			full := a.resolver.join(a.desc, pageURL, href)
			if seen[full] {
				continue
			}
			seen[full] = true
			entries = append(entries, ManifestEntry{URL: full, Filename: fileStem(full)})
		}
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}
