package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/mapgen"
)

func newTestServer(t *testing.T) *RestServer {
	cfg := &config.WorldConfig{
		Seed:      42,
		WorldSize: 128,
		Workers:   2,
		Layers: []config.LayerConfig{
			{
				Name:        "landmass",
				Resolution:  16,
				Frequency:   4.0,
				NoiseWeight: 1.0,
				Bands: []config.Band{
					{Max: 0.4, Category: 0},
					{Max: 1.0, Category: 1},
				},
				SmoothMode:   config.SmoothMajority,
				SmoothRadius: 1,
			},
			{
				Name:           "climate",
				Resolution:     64,
				ScaleFactor:    4,
				SubSeedOffset:  1000,
				Frequency:      8.0,
				NoiseWeight:    0.3,
				LatitudeWeight: 0.7,
				Bands: []config.Band{
					{Max: 0.25, Category: 4},
					{Max: 0.5, Category: 3},
					{Max: 0.75, Category: 2},
					{Max: 1.0, Category: 1},
				},
				SmoothMode:   config.SmoothMean,
				SmoothRadius: 1,
			},
		},
	}

	pyramid, err := mapgen.GeneratePyramid(cfg)
	require.NoError(t, err)

	// Изолированный регистр метрик: каждый тест поднимает свой сервер
	server, err := NewRestServer(Config{
		Addr:    ":0",
		Pyramid: pyramid,
		Metrics: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return server
}

func doRequest(server *RestServer, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	server.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["layers"])
}

func TestInfoEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, "/api/map/info")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Seed      int64 `json:"seed"`
		WorldSize int   `json:"world_size"`
		Layers    []struct {
			Name           string `json:"name"`
			Resolution     int    `json:"resolution"`
			BlocksPerPixel int    `json:"blocks_per_pixel"`
		} `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, int64(42), body.Seed)
	assert.Equal(t, 128, body.WorldSize)
	require.Len(t, body.Layers, 2)
	assert.Equal(t, "landmass", body.Layers[0].Name)
	assert.Equal(t, 8, body.Layers[0].BlocksPerPixel)
	assert.Equal(t, 2, body.Layers[1].BlocksPerPixel)
}

func TestStatsEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, "/api/map/layers/0/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Layer      int                `json:"layer"`
		Categories map[string]float64 `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	total := 0.0
	for _, pct := range body.Categories {
		total += pct
	}
	assert.InDelta(t, 100.0, total, 0.1)
}

func TestStatsEndpointUnknownLayer(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, "/api/map/layers/9/stats")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSampleEndpoint(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, "/api/map/layers/1/sample?x=64&z=64")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Category uint8 `json:"category"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.LessOrEqual(t, body.Category, uint8(4))
}

func TestSampleEndpointClamping(t *testing.T) {
	server := newTestServer(t)

	// Координаты далеко за краем мира дают тот же ответ, что и край
	edge := doRequest(server, "/api/map/layers/0/sample?x=0&z=0")
	require.Equal(t, http.StatusOK, edge.Code)

	outside := doRequest(server, fmt.Sprintf("/api/map/layers/0/sample?x=%d&z=%d", -999999, -999999))
	require.Equal(t, http.StatusOK, outside.Code)

	assert.JSONEq(t,
		edge.Body.String(),
		replaceCoords(outside.Body.String(), 0),
	)
}

// replaceCoords нормализует координаты в ответе для сравнения категорий
func replaceCoords(body string, to int) string {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return body
	}
	m["x"] = to
	m["z"] = to
	out, _ := json.Marshal(m)
	return string(out)
}

func TestSampleEndpointBadInput(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, "/api/map/layers/0/sample?x=abc&z=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(server, "/api/map/layers/0/sample")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
