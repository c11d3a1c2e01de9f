package adapters

import (
	"context"
	"fmt"
	stdhtml "html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/491415/PMCT/internal/vendors"
)

// downloadHrefRx matches the per-file download links Konzum renders on
// each listing page.
var downloadHrefRx = regexp.MustCompile(`href="(/cjenici/download\?[^"]+)"`)

// paginatedAdapter walks a listing split across numbered pages. The
// pagination widget's second-to-last item carries the page count; the
// last one is the next-page arrow.
type paginatedAdapter struct {
	urlFetcher
	desc vendors.Descriptor
}

func newPaginatedAdapter(desc vendors.Descriptor, client *Client) *paginatedAdapter {
	return &paginatedAdapter{urlFetcher: urlFetcher{client}, desc: desc}
}

func (a *paginatedAdapter) pageCount(ctx context.Context, date time.Time) (int, error) {
	listURL := fmt.Sprintf("%s?date=%s", a.desc.ListURL, tokenISO(date))
	body, _, err := a.client.Get(ctx, listURL)
	if err != nil {
		return 0, err
	}
	root, err := parseHTML(body)
	if err != nil {
		return 0, err
	}

	uls := findAll(root, func(n *html.Node) bool {
		return n.Data == "ul" && hasClass(n, "pagination")
	})
	if len(uls) == 0 {
		return 0, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	var anchors []*html.Node
	for _, li := range findAll(uls[0], func(n *html.Node) bool {
		return n.Data == "li" && hasClass(n, "page-item")
	}) {
		anchors = append(anchors, findAll(li, func(n *html.Node) bool { return n.Data == "a" })...)
	}
	if len(anchors) < 2 {
		return 0, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	count, err := strconv.Atoi(strings.TrimSpace(nodeText(anchors[len(anchors)-2])))
	if err != nil {
		return 0, fmt.Errorf("parse page count: %w", err)
	}
	return count, nil
}

func (a *paginatedAdapter) Resolve(ctx context.Context, date time.Time) ([]ManifestEntry, error) {
	pages, err := a.pageCount(ctx, date)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var entries []ManifestEntry
	for page := 1; page <= pages; page++ {
		pageURL := fmt.Sprintf("%s?date=%s&page=%d", a.desc.ListURL, tokenISO(date), page)
		body, _, err := a.client.Get(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, m := range downloadHrefRx.FindAllStringSubmatch(string(body), -1) {
			full := a.desc.BaseURL + stdhtml.UnescapeString(m[1])
			if seen[full] {
				continue
			}
			seen[full] = true
			entries = append(entries, ManifestEntry{URL: full, Filename: downloadTitle(full)})
		}
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{Vendor: a.desc.Name, Date: date}
	}
	return entries, nil
}

// downloadTitle extracts the file name from a download link's title
// query parameter and drops the extension.
func downloadTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fileStem(rawURL)
	}
	title := u.Query().Get("title")
	if title == "" {
		return fileStem(rawURL)
	}
	return strings.TrimSuffix(title, ".csv")
}
