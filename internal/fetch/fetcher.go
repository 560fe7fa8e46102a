// Package fetch retrieves single HTML pages from the municipal portal via
// Colly, exposing them as goquery documents with charset handling for the
// legacy encodings some government pages still serve.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Page is one fetched HTML page.
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Document parses the page body as HTML, converting to UTF-8 based on the
// declared content type when the page is not UTF-8 already.
func (p Page) Document() (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(p.Body), p.ContentType)
	if err != nil {
		return nil, fmt.Errorf("charset reader for %s: %w", p.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html for %s: %w", p.URL, err)
	}
	return doc, nil
}

// Config controls the HTTP client behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Client fetches pages through a shared Colly collector.
type Client struct {
	base   *colly.Collector
	logger *zap.Logger
}

// New constructs a configured Client.
func New(cfg Config, logger *zap.Logger) *Client {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	if cfg.Timeout > 0 {
		base.SetRequestTimeout(cfg.Timeout)
	}
	return &Client{base: base, logger: logger}
}

// Fetch retrieves a page. Non-2xx responses surface as errors so callers can
// treat them like any other transient fetch failure.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := c.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		send(fetchResult{page: Page{
			URL:         rawURL,
			FinalURL:    r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: contentType,
			Body:        append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		if res.err != nil {
			return Page{}, fmt.Errorf("fetch %s: %w", rawURL, res.err)
		}
		return res.page, nil
	default:
		return Page{}, fmt.Errorf("fetch %s: no response produced", rawURL)
	}
}

type fetchResult struct {
	page Page
	err  error
}
