package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/data/repos/testutil"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/http/response"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/merge"
	"github.com/yungbote/dreamworld-backend/internal/platform/keylock"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
	"github.com/yungbote/dreamworld-backend/internal/realtime/bus"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	locks := keylock.New()
	events := services.NewWorldEvents(bus.NewLocal(realtime.NewHub(log)), nil, log)
	jobSvc := services.NewJobService(db, log, set.JobRuns)

	dreamH := NewDreamHandler(services.NewDreamService(db, log, set.Dreams, jobSvc, events, 5))
	locH := NewLocationHandler(services.NewLocationService(db, log, set, merge.NewEngine(db, set, locks, log, events), events))
	entH := NewEntityHandler(services.NewEntityService(db, log, set))
	worldH := NewWorldHandler(services.NewWorldService(db, log, set, locks))
	jobH := NewJobHandler(jobSvc)

	r := gin.New()
	r.GET("/healthcheck", NewHealthHandler(db).HealthCheck)
	api := r.Group("/api")
	api.POST("/dreams", dreamH.CreateDream)
	api.GET("/dreams", dreamH.ListDreams)
	api.GET("/dreams/:id", dreamH.GetDream)
	api.GET("/locations", locH.ListLocations)
	api.POST("/locations", locH.CreateLocation)
	api.POST("/locations/merge", locH.MergeLocations)
	api.GET("/locations/:id", locH.GetLocation)
	api.PATCH("/locations/:id", locH.UpdateLocation)
	api.GET("/locations/:id/transits", locH.ListTransits)
	api.GET("/entities", entH.ListEntities)
	api.POST("/entities", entH.CreateEntity)
	api.GET("/entities/:id", entH.GetEntity)
	api.GET("/stats", worldH.Stats)
	api.GET("/export", worldH.Export)
	api.POST("/import", worldH.Import)
	api.GET("/jobs/:id", jobH.GetJob)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	r := newTestEngine(t)
	w := doJSON(t, r, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestCreateDreamAndFetch(t *testing.T) {
	r := newTestEngine(t)

	w := doJSON(t, r, http.MethodPost, "/api/dreams", map[string]any{
		"date":    "2024-05-01",
		"content": "I walked through a forest",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "I walked through a forest", created["content"])
	assert.Equal(t, float64(1), created["cycle"])
	assert.Equal(t, false, created["processed"])

	jobID := w.Header().Get("X-Job-Id")
	_, err := uuid.Parse(jobID)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodGet, "/api/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"queued"`)

	w = doJSON(t, r, http.MethodGet, "/api/dreams?skip=0&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]map[string]any](t, w)
	require.Len(t, list, 1)

	w = doJSON(t, r, http.MethodGet, "/api/dreams/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateDreamValidation(t *testing.T) {
	r := newTestEngine(t)

	cases := []struct {
		name string
		body any
	}{
		{"missing content", map[string]any{"date": "2024-05-01"}},
		{"blank content", map[string]any{"date": "2024-05-01", "content": "   "}},
		{"bad date", map[string]any{"date": "yesterday", "content": "x"}},
		{"zero cycle", map[string]any{"date": "2024-05-01", "content": "x", "cycle": 0}},
		{"malformed json", `{"date":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/dreams", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			env := decode[response.ErrorEnvelope](t, w)
			assert.Equal(t, "validation_error", env.Error.Code)
		})
	}
}

func TestPathAndLookupErrors(t *testing.T) {
	r := newTestEngine(t)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/api/dreams/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/dreams/999", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/locations/999", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/locations/999/transits", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/entities?location_id=999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/api/locations?layer=SIDEWAYS", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/api/jobs/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/jobs/"+uuid.NewString(), nil).Code)
}

func TestLocationLifecycle(t *testing.T) {
	r := newTestEngine(t)

	w := doJSON(t, r, http.MethodPost, "/api/locations", map[string]any{
		"name":      "Old Library",
		"archetype": "library",
		"layer":     "UPPER",
		"x":         42.5,
		"y":         -12,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loc := decode[world.Location](t, w)
	assert.Equal(t, world.LayerUpper, loc.Layer)
	assert.Equal(t, 42.5, loc.X)

	w = doJSON(t, r, http.MethodPost, "/api/locations", map[string]any{"name": "Bad", "layer": "SIDEWAYS"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/locations", map[string]any{"name": "Bad", "color": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/api/locations/1", map[string]any{"x": 500, "description": "dusty"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loc = decode[world.Location](t, w)
	assert.Equal(t, 100.0, loc.X)
	assert.Equal(t, "dusty", loc.Description)
	assert.Equal(t, "Old Library", loc.Name)

	w = doJSON(t, r, http.MethodGet, "/api/locations?layer=upper", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]world.Location](t, w), 1)

	w = doJSON(t, r, http.MethodGet, "/api/locations?layer=LOWER", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]world.Location](t, w), 0)

	w = doJSON(t, r, http.MethodGet, "/api/locations/1/transits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]world.Transit](t, w), 0)
}

func TestMergeLocationsEndpoint(t *testing.T) {
	r := newTestEngine(t)
	for _, name := range []string{"Forest", "Dark Forest"} {
		w := doJSON(t, r, http.MethodPost, "/api/locations", map[string]any{"name": name, "archetype": "forest"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := doJSON(t, r, http.MethodPost, "/api/locations/merge", map[string]any{"source_ids": []uint64{}, "target_name": "Forest"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/locations/merge", map[string]any{
		"source_ids":  []uint64{1, 2},
		"target_name": "The Forest",
		"user_note":   "same place",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	merged := decode[world.Location](t, w)
	assert.Equal(t, "The Forest", merged.Name)

	w = doJSON(t, r, http.MethodGet, "/api/locations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]world.Location](t, w), 1)
}

func TestEntityEndpoints(t *testing.T) {
	r := newTestEngine(t)
	w := doJSON(t, r, http.MethodPost, "/api/locations", map[string]any{"name": "Beach"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/entities", map[string]any{"name": "Gull", "type": "animal", "location_id": 1, "confidence": 0.7})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/entities", map[string]any{"name": "Crab", "confidence": 1.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/entities", map[string]any{"name": "Crab", "location_id": 404})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/entities?location_id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]world.Entity](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Gull", list[0].Name)

	w = doJSON(t, r, http.MethodGet, "/api/entities/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestEngine(t)
	require.Equal(t, http.StatusCreated, doJSON(t, src, http.MethodPost, "/api/dreams", map[string]any{"date": "2024-05-01", "content": "a dream"}).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, src, http.MethodPost, "/api/locations", map[string]any{"name": "Tower", "layer": "UPPER"}).Code)

	w := doJSON(t, src, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	exported := decode[services.WorldExport](t, w)
	assert.Equal(t, services.ExportVersion, exported.Version)
	require.Len(t, exported.Locations, 1)

	dst := newTestEngine(t)
	w = doJSON(t, dst, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sum := decode[services.ImportSummary](t, w)
	assert.Equal(t, 1, sum.Dreams)
	assert.Equal(t, 1, sum.Locations)

	w = doJSON(t, dst, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.WorldStats](t, w)
	assert.EqualValues(t, 1, stats.TotalDreams)
	assert.EqualValues(t, 1, stats.TotalLocations)

	w = doJSON(t, dst, http.MethodPost, "/api/import", map[string]any{"version": "9.9"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
