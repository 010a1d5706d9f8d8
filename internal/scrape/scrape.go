// Package scrape retrieves job-posting pages and renders them as markdown
// suitable for prompt context.
package scrape

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	fhttpcookiejar "github.com/bogdanfinn/fhttp/cookiejar"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Config configures the scraper.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 30s.
	MaxBytes int64         // Max response body size. Default: 10MB.
	// UserAgents is the rotation pool for the User-Agent header.
	UserAgents []string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024 // 10MB
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = defaultUserAgents
	}
}

// Scraper fetches posting pages with a browser TLS fingerprint and converts
// them to markdown. Plain text extraction is the fallback when conversion
// yields nothing useful.
type Scraper struct {
	http        tls_client.HttpClient
	config      Config
	mdConverter *converter.Converter
	logger      zerolog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// New creates a Scraper.
func New(cfg Config, logger zerolog.Logger) (*Scraper, error) {
	cfg.defaults()

	jar, _ := fhttpcookiejar.New(nil)
	client, err := tls_client.NewHttpClient(
		tls_client.NewNoopLogger(),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithTimeoutSeconds(int(cfg.Timeout.Seconds())),
		tls_client.WithCookieJar(jar),
	)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		http:   client,
		config: cfg,
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Fetch retrieves the page at target and returns its markdown rendition.
func (s *Scraper) Fetch(ctx context.Context, target string) (string, error) {
	html, err := s.fetchHTML(ctx, target)
	if err != nil {
		return "", err
	}
	return s.htmlToMarkdown(html, target), nil
}

func (s *Scraper) fetchHTML(ctx context.Context, target string) (string, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", s.randomUA())
	req.Header.Set("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("accept-language", "en-US,en;q=0.9")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// htmlToMarkdown converts HTML to structured markdown.
// If conversion fails or produces empty output, returns the page's plain text.
func (s *Scraper) htmlToMarkdown(html string, sourceURL string) string {
	result, err := s.mdConverter.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(result) == "" {
		if err != nil {
			s.logger.Debug().Err(err).Str("url", sourceURL).Msg("markdown conversion failed, using plain text")
		}
		return fallbackText(html)
	}
	return strings.TrimSpace(result)
}

// fallbackText extracts visible text from raw HTML, collapsing whitespace.
func fallbackText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func (s *Scraper) randomUA() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.UserAgents[s.rand.Intn(len(s.config.UserAgents))]
}
