// Package web finds documents on a publisher's listing pages and downloads
// them into the corpus folder.
package web

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/logger"
)

var _ driven.SourceCrawler = (*Crawler)(nil)

const (
	// DefaultMaxPages bounds how many pages of one listing are followed.
	DefaultMaxPages = 20
	// DefaultTimeout bounds one request, including the body of a download.
	DefaultTimeout = 2 * time.Minute

	userAgent    = "sanad (+https://github.com/custodia-labs/sanad)"
	maxPageBytes = 10 << 20
	// A PDF header may follow up to 1 KiB of junk.
	headerWindow = 1024
)

var pdfMagic = []byte("%PDF-")

// Crawler walks listing pages and downloads the PDFs they link to.
// Every request, listing or download, waits on one shared limiter.
type Crawler struct {
	dir      string
	client   *http.Client
	limiter  *rate.Limiter
	maxPages int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		if client != nil {
			c.client = client
		}
	}
}

// WithMaxPages bounds how many pages of one listing are followed.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithRate limits requests per second. A non-positive rate disables throttling.
func WithRate(perSecond float64) Option {
	return func(c *Crawler) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// New creates a crawler that downloads into dir.
func New(dir string, opts ...Option) *Crawler {
	c := &Crawler{
		dir:      dir,
		client:   &http.Client{Timeout: DefaultTimeout},
		limiter:  rate.NewLimiter(rate.Inf, 1),
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the folder documents are downloaded into.
func (c *Crawler) Dir() string {
	return c.dir
}

// Discover walks listing page by page, following the "Next" link until
// there is none, a page repeats or the page limit is reached.
func (c *Crawler) Discover(ctx context.Context, listing string) ([]domain.SourceRecord, int, error) {
	page, err := url.Parse(listing)
	if err != nil || !isHTTP(page) {
		return nil, 0, fmt.Errorf("%w: invalid listing url %q", domain.ErrInvalidInput, listing)
	}

	var (
		records []domain.SourceRecord
		seen    = make(map[string]struct{})
		visited = make(map[string]struct{})
		pages   int
	)
	for page != nil {
		if _, ok := visited[page.String()]; ok {
			break
		}
		if pages == c.maxPages {
			logger.Debug("%s: stopping at the %d page limit", listing, c.maxPages)
			break
		}
		visited[page.String()] = struct{}{}

		doc, err := c.fetchPage(ctx, page.String())
		if err != nil {
			return records, pages, err
		}
		pages++

		links, next := scan(doc, page)
		before := len(records)
		for _, link := range links {
			if _, dup := seen[link.String()]; dup {
				continue
			}
			seen[link.String()] = struct{}{}
			name, ok := filenameOf(link)
			if !ok {
				logger.Debug("Ignoring %s: no usable filename", link)
				continue
			}
			records = append(records, domain.SourceRecord{Filename: name, URL: link.String()})
		}
		logger.Debug("%s page %d: %d new documents", listing, pages, len(records)-before)
		page = next
	}
	return records, pages, nil
}

// Fetch downloads rec into the corpus folder. The file appears under its
// final name only once the whole body has been written.
func (c *Crawler) Fetch(ctx context.Context, rec domain.SourceRecord) (bool, error) {
	name := rec.Filename
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false, fmt.Errorf("%w: unsafe filename %q", domain.ErrInvalidInput, name)
	}
	target := filepath.Join(c.dir, name)
	if _, err := os.Stat(target); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", name, err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return false, fmt.Errorf("create corpus directory: %w", err)
	}

	resp, err := c.get(ctx, rec.URL)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body := bufio.NewReaderSize(resp.Body, headerWindow)
	head, _ := body.Peek(headerWindow)
	if !bytes.Contains(head, pdfMagic) {
		return false, fmt.Errorf("%s: %w (%s)", rec.URL, domain.ErrNotDocument, resp.Header.Get("Content-Type"))
	}

	tmp, err := os.CreateTemp(c.dir, ".crawl-*.part")
	if err != nil {
		return false, fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("download %s: %w", rec.URL, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return false, fmt.Errorf("write %s: %w", name, err)
	}
	return true, nil
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*html.Node, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// get waits for the limiter and issues a GET. Any non-2xx status is an error.
func (c *Crawler) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

// scan returns every PDF link on a page and the page's "Next" link, if any.
// An anchor inside an enabled li.next wins over one whose text says "Next".
func scan(doc *html.Node, base *url.URL) ([]*url.URL, *url.URL) {
	var (
		links          []*url.URL
		byItem, byText *url.URL
	)

	var walk func(n *html.Node, inNext bool)
	walk = func(n *html.Node, inNext bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Li:
				if hasClass(n, "next") && !hasClass(n, "disabled") {
					inNext = true
				}
			case atom.A:
				if u := resolve(base, attr(n, "href")); u != nil {
					if strings.EqualFold(path.Ext(u.Path), ".pdf") {
						links = append(links, u)
					}
					if inNext && byItem == nil {
						byItem = u
					}
					if byText == nil && strings.Contains(textOf(n), "Next") {
						byText = u
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inNext)
		}
	}
	walk(doc, false)

	if byItem != nil {
		return links, byItem
	}
	return links, byText
}

// resolve makes href absolute against base. Fragment-only, script and
// non-http links resolve to nil.
func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	u, err := base.Parse(href)
	if err != nil || !isHTTP(u) {
		return nil
	}
	u.Fragment = ""
	return u
}

// filenameOf names a download after the last path segment of its link.
func filenameOf(u *url.URL) (string, bool) {
	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}

func isHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
