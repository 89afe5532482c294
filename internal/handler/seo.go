package handler

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/labstack/echo/v4"

	"github.com/foxyglamour/storefront/internal/domain/catalog"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

var staticPages = []string{"/", "/about/", "/contact/"}

func (h *Handler) publicBase(c echo.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	return c.Scheme() + "://" + c.Request().Host
}

// buildSitemap lists static pages, available products and categories.
func (h *Handler) buildSitemap(ctx context.Context, base string) ([]byte, error) {
	products, err := h.Catalog.ListProducts(ctx, catalog.Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	categories, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}

	set := urlSet{Xmlns: sitemapNS}
	for _, p := range staticPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + p, ChangeFreq: "weekly", Priority: "0.5"})
	}
	for _, p := range products {
		url := sitemapURL{
			Loc:        base + "/" + strconv.FormatInt(p.ID, 10) + "/" + p.Slug + "/",
			ChangeFreq: "daily",
			Priority:   "0.9",
		}
		if !p.Updated.IsZero() {
			url.LastMod = p.Updated.UTC().Format(time.DateOnly)
		}
		set.URLs = append(set.URLs, url)
	}
	for _, c := range categories {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/" + c.Slug + "/", ChangeFreq: "weekly", Priority: "0.7"})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(set); err != nil {
		return nil, errors.Wrap(err, "encode sitemap")
	}
	return buf.Bytes(), nil
}

func (h *Handler) Sitemap(c echo.Context) error {
	data, err := h.buildSitemap(c.Request().Context(), h.publicBase(c))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, data)
}

// SitemapGzip serves the sitemap gzip-compressed.
func (h *Handler) SitemapGzip(c echo.Context) error {
	data, err := h.buildSitemap(c.Request().Context(), h.publicBase(c))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return errors.Wrap(err, "compress sitemap")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "compress sitemap")
	}
	return c.Blob(http.StatusOK, "application/gzip", buf.Bytes())
}

func (h *Handler) Robots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, p := range []string{"/api/admin/", "/api/cart", "/api/checkout", "/api/accounts/"} {
		b.WriteString("Disallow: " + p + "\n")
	}
	b.WriteString("\nSitemap: " + h.publicBase(c) + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}
