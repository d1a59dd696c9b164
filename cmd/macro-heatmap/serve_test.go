package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/macro-heatmap/internal/macro"
	"github.com/i474232898/macro-heatmap/internal/store"
	"github.com/i474232898/macro-heatmap/internal/store/sqlite"
)

type rowsProvider []macro.RawRow

func (p rowsProvider) Name() string { return "rows" }

func (p rowsProvider) Fetch(context.Context) ([]macro.RawRow, error) {
	return p, nil
}

func newHealthApp(t *testing.T, withArchive bool) (*fiber.App, *app) {
	t.Helper()

	catalog, err := macro.NewCatalog([]macro.IndicatorConfig{{
		ID:         "CPI",
		Method:     macro.Point(),
		Direction:  macro.HigherIsWorse,
		Thresholds: macro.Thresholds{Caution: 2.0, Warning: 3.5},
	}})
	require.NoError(t, err)

	provider := rowsProvider{{Indicator: "CPI", Date: "2024-01-05", Value: "3.1"}}
	svc := macro.NewService(catalog, func() macro.ObservationStore { return store.NewMemoryStore() }, []macro.Provider{provider})

	a := &app{service: svc}
	if withArchive {
		archive, err := sqlite.New(filepath.Join(t.TempDir(), "archive.db"))
		require.NoError(t, err)
		a.archive = archive
		svc.WithArchive(archive)
		t.Cleanup(a.Close)
	}

	server := fiber.New()
	server.Get("/health", healthHandler(a))
	return server, a
}

func getHealth(t *testing.T, server *fiber.App) map[string]any {
	t.Helper()
	resp, err := server.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// TestHealthReportsArchivedSnapshot verifies that /health names the snapshot
// that was last written to the archive once a live load has been saved.
func TestHealthReportsArchivedSnapshot(t *testing.T) {
	server, a := newHealthApp(t, true)

	body := getHealth(t, server)
	assert.Equal(t, "loading", body["status"])
	assert.NotContains(t, body, "archivedSnapshot")

	require.NoError(t, a.service.Refresh(context.Background()))
	snap, err := a.service.Snapshot()
	require.NoError(t, err)

	body = getHealth(t, server)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, snap.ID, body["snapshot"])
	assert.Equal(t, snap.ID, body["archivedSnapshot"])
	assert.Equal(t, macro.SourceLive, body["source"])
}

func TestHealthWithoutArchive(t *testing.T) {
	server, a := newHealthApp(t, false)
	require.NoError(t, a.service.Refresh(context.Background()))

	body := getHealth(t, server)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "archivedSnapshot")
}
