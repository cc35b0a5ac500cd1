package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathan/pathway-tracker/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSheetURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "edit link with gid fragment",
			in:   "https://docs.google.com/spreadsheets/d/abc123/edit#gid=456",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=456",
		},
		{
			name: "edit link without gid",
			in:   "https://docs.google.com/spreadsheets/d/abc-123_X/edit?usp=sharing",
			want: "https://docs.google.com/spreadsheets/d/abc-123_X/export?format=csv",
		},
		{
			name: "export link passes through",
			in:   "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=0",
			want: "https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=0",
		},
		{
			name: "published csv passes through",
			in:   "https://docs.google.com/spreadsheets/d/e/2PACX-1v/pub?output=csv",
			want: "https://docs.google.com/spreadsheets/d/e/2PACX-1v/pub?output=csv",
		},
		{
			name: "published html becomes csv",
			in:   "https://docs.google.com/spreadsheets/d/e/2PACX-1v/pubhtml",
			want: "https://docs.google.com/spreadsheets/d/e/2PACX-1v/pub?output=csv",
		},
		{
			name: "other host untouched",
			in:   "https://example.com/people.csv",
			want: "https://example.com/people.csv",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSheetURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSheetURL_Invalid(t *testing.T) {
	_, err := ResolveSheetURL("not a url")
	assert.Error(t, err)
}

func TestFetchSheet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("name,email\nJane Smith,jane@example.com\n"))
	}))
	defer server.Close()

	body, err := FetchSheet(context.Background(), server.URL+"/people.csv", nil)
	require.NoError(t, err)

	rows, err := ParseCSV(body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane", rows[0].FirstName)
}

func TestFetchSheet_InvalidURL(t *testing.T) {
	_, err := FetchSheet(context.Background(), "::::", nil)
	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.NotEmpty(t, fetchErr.UserMessage())
}
