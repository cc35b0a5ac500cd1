// Package fetch retrieves remote spreadsheet exports and turns transport
// failures into messages a church admin can act on.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; PathwayTracker/1.0)"

// MaxBodyBytes caps how much of a response is read.
const MaxBodyBytes = 10 << 20

// Remediation messages surfaced to users.
const (
	RemediationPublish = "Make sure the sheet is shared publicly: in Google Sheets choose File > Share > Publish to web, " +
		"select the tab and 'Comma-separated values (.csv)', then paste the published link."
	RemediationUnreachable = "The sheet could not be reached. Check the link and your connection, then try again."
)

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	Body        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL         string
	Message     string
	Remediation string
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns the remediation text, falling back to the error message.
func (e *Error) UserMessage() string {
	if e.Remediation != "" {
		return e.Remediation
	}
	return e.Message
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	Client    *http.Client
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// URL retrieves the body of a URL. A non-200 status returns the result along with an error.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:         urlStr,
			Message:     "invalid URL",
			Remediation: "The sheet link is not a valid URL.",
			Cause:       err,
		}
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:         urlStr,
			Message:     "HTTP request failed",
			Remediation: RemediationUnreachable,
			Cause:       err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}

	result := &Result{
		URL:         urlStr,
		Body:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		remediation := RemediationUnreachable
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			remediation = RemediationPublish
		}
		return result, &Error{
			URL:         urlStr,
			Message:     fmt.Sprintf("HTTP status %d", resp.StatusCode),
			Remediation: remediation,
		}
	}

	return result, nil
}

// CSV fetches urlStr and verifies the response is CSV text rather than an HTML
// page (a sign-in wall or an unpublished sheet).
func CSV(ctx context.Context, urlStr string, opts *Options) (string, error) {
	result, err := URL(ctx, urlStr, opts)
	if err != nil {
		return "", err
	}

	if LooksLikeHTML(result.ContentType, result.Body) {
		msg := "expected CSV but received an HTML page"
		if title := PageTitle(result.Body); title != "" {
			msg = fmt.Sprintf("%s (%q)", msg, title)
		}
		return "", &Error{
			URL:         urlStr,
			Message:     msg,
			Remediation: RemediationPublish,
		}
	}

	if strings.TrimSpace(result.Body) == "" {
		return "", &Error{
			URL:         urlStr,
			Message:     "sheet export is empty",
			Remediation: "The sheet has no rows. Add a header row and at least one person, then sync again.",
		}
	}

	return result.Body, nil
}

// LooksLikeHTML reports whether a response is an HTML document.
func LooksLikeHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// PageTitle extracts the <title> of an HTML page, or "" when it has none.
func PageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
