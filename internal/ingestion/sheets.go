package ingestion

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jonathan/pathway-tracker/internal/fetch"
)

var sheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ResolveSheetURL turns a Google Sheets link into a URL that returns CSV.
// Published CSV links and export links pass through unchanged; an "edit" or
// "view" link becomes the export form, keeping the tab's gid. Non-Google URLs
// are returned as is.
func ResolveSheetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid sheet URL: %q", raw)
	}
	if !strings.Contains(u.Host, "docs.google.com") {
		return raw, nil
	}

	q := u.Query()
	switch {
	case strings.Contains(u.Path, "/export") && q.Get("format") == "csv":
		return raw, nil
	case strings.HasSuffix(u.Path, "/pub") && q.Get("output") == "csv":
		return raw, nil
	case strings.HasSuffix(u.Path, "/pubhtml") || strings.HasSuffix(u.Path, "/pub"):
		u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "html"), "/pub") + "/pub"
		q.Set("output", "csv")
		u.RawQuery = q.Encode()
		u.Fragment = ""
		return u.String(), nil
	}

	m := sheetIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return raw, nil
	}

	gid := q.Get("gid")
	if gid == "" && strings.HasPrefix(u.Fragment, "gid=") {
		gid = strings.TrimPrefix(u.Fragment, "gid=")
	}

	export := url.URL{
		Scheme: "https",
		Host:   u.Host,
		Path:   "/spreadsheets/d/" + m[1] + "/export",
	}
	eq := url.Values{}
	eq.Set("format", "csv")
	if gid != "" {
		eq.Set("gid", gid)
	}
	export.RawQuery = eq.Encode()
	return export.String(), nil
}

// FetchSheet resolves the sheet link and downloads its CSV export.
func FetchSheet(ctx context.Context, sheetURL string, opts *fetch.Options) (string, error) {
	resolved, err := ResolveSheetURL(sheetURL)
	if err != nil {
		return "", &fetch.Error{URL: sheetURL, Message: err.Error(), Remediation: "The sheet link is not a valid URL."}
	}
	return fetch.CSV(ctx, resolved, opts)
}
