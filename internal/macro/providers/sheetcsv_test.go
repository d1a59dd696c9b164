package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/macro-heatmap/internal/macro"
)

var fastBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func TestParseCSVHeaderAliases(t *testing.T) {
	doc := "\ufeffAttribute,Month-Year,Value,Note\n" +
		"CPI,2024-01-05,3.1,first\n" +
		"CPI,2024-01-20,3.3\n" +
		"M2,2024-01-01,\"21,034\",quoted\n"

	rows, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []macro.RawRow{
		{Indicator: "CPI", Date: "2024-01-05", Value: "3.1"},
		{Indicator: "CPI", Date: "2024-01-20", Value: "3.3"},
		{Indicator: "M2", Date: "2024-01-01", Value: "21,034"},
	}, rows)
}

func TestParseCSVColumnOrder(t *testing.T) {
	doc := "value,date,indicator\n2.9,2024-02-10,CPI\n"

	rows, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []macro.RawRow{{Indicator: "CPI", Date: "2024-02-10", Value: "2.9"}}, rows)
}

func TestParseCSVShortLineYieldsEmptyFields(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("indicator,date,value\nCPI,2024-02-10\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Value)
}

func TestParseCSVRejectsBadHeader(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("indicator,when,value\nCPI,2024-02-10,1\n"))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestSheetCSVProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("indicator,date,value\nVIX,2024-03-01,14.2\n"))
	}))
	defer srv.Close()

	p := NewSheetCSVProvider(srv.Client(), srv.URL)
	assert.Equal(t, "sheet", p.Name())

	rows, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []macro.RawRow{{Indicator: "VIX", Date: "2024-03-01", Value: "14.2"}}, rows)
}

func TestSheetCSVProviderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("indicator,date,value\nVIX,2024-03-01,14.2\n"))
	}))
	defer srv.Close()

	p := NewSheetCSVProvider(srv.Client(), srv.URL)
	p.WithBackoff(fastBackoff)

	rows, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSheetCSVProviderDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewSheetCSVProvider(srv.Client(), srv.URL)
	p.WithBackoff(fastBackoff)

	_, err := p.Fetch(context.Background())
	assert.ErrorIs(t, err, errUnexpected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSheetCSVProviderRequiresURL(t *testing.T) {
	_, err := NewSheetCSVProvider(http.DefaultClient, "").Fetch(context.Background())
	assert.Error(t, err)
}
