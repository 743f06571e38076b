package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/mapgen"
	"github.com/annel0/mmo-worldgen/internal/middleware"
)

// RestServer — диагностический REST API поверх сгенерированной пирамиды:
// информация о слоях, статистика категорий и выборочное сэмплирование.
// Только чтение; пирамида неизменяема, блокировки не нужны.
type RestServer struct {
	router  *gin.Engine
	pyramid *mapgen.WorldMapPyramid
	srv     *http.Server
}

// Config содержит конфигурацию REST сервера
type Config struct {
	Addr    string                  // адрес прослушивания, например ":8088"
	Pyramid *mapgen.WorldMapPyramid // готовая пирамида карты
	Metrics prometheus.Registerer   // регистр метрик; nil — дефолтный
}

// NewRestServer создаёт REST сервер поверх пирамиды
func NewRestServer(config Config) (*RestServer, error) {
	if config.Pyramid == nil {
		return nil, fmt.Errorf("пирамида карты не задана")
	}
	if config.Addr == "" {
		config.Addr = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // без стандартного logger/recovery
	router.Use(gin.Recovery())

	router.Use(middleware.NewRequestLogger().Handler())

	if config.Metrics == nil {
		config.Metrics = prometheus.DefaultRegisterer
	}
	promMw := middleware.NewPrometheusMiddlewareWithRegisterer("worldgen_api", config.Metrics)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:  router,
		pyramid: config.Pyramid,
		srv: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}

	server.setupRoutes()
	return server, nil
}

// Router возвращает gin-роутер (для тестов)
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api/map")
	{
		api.GET("/info", rs.handleInfo)
		api.GET("/layers/:index/stats", rs.handleStats)
		api.GET("/layers/:index/sample", rs.handleSample)
	}
}

// handleHealth обрабатывает health check
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"layers": rs.pyramid.LayerCount(),
	})
}

// handleInfo возвращает описание пирамиды
func (rs *RestServer) handleInfo(c *gin.Context) {
	layers := make([]gin.H, 0, rs.pyramid.LayerCount())
	for i := 0; i < rs.pyramid.LayerCount(); i++ {
		layer, _ := rs.pyramid.LayerInfo(i)
		checksum, _ := rs.pyramid.Checksum(i)
		layers = append(layers, gin.H{
			"index":            i,
			"name":             layer.Name,
			"resolution":       layer.Grid.Size(),
			"blocks_per_pixel": layer.BlocksPerPixel,
			"scale_factor":     layer.ScaleFactor,
			"checksum":         fmt.Sprintf("%016x", checksum),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"seed":       rs.pyramid.Seed(),
		"world_size": rs.pyramid.WorldSize(),
		"layers":     layers,
	})
}

// handleStats возвращает распределение категорий слоя в процентах
func (rs *RestServer) handleStats(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный индекс слоя"})
		return
	}

	stats, err := rs.pyramid.Statistics(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// JSON-ключи должны быть строками
	out := make(map[string]float64, len(stats))
	for cat, pct := range stats {
		out[strconv.Itoa(int(cat))] = pct
	}

	c.JSON(http.StatusOK, gin.H{"layer": index, "categories": out})
}

// handleSample возвращает категорию для мировых координат.
// Координаты вне мира прижимаются к краю — как и в SampleAt.
func (rs *RestServer) handleSample(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный индекс слоя"})
		return
	}

	worldX, err := strconv.Atoi(c.Query("x"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректная координата x"})
		return
	}
	worldZ, err := strconv.Atoi(c.Query("z"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректная координата z"})
		return
	}

	category, err := rs.pyramid.SampleAt(index, worldX, worldZ)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"layer":    index,
		"x":        worldX,
		"z":        worldZ,
		"category": category,
	})
}

// Start запускает сервер в фоне
func (rs *RestServer) Start() {
	go func() {
		logging.GetAPILogger().Info("REST API запущен на %s", rs.srv.Addr)
		if err := rs.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.GetAPILogger().Error("Ошибка REST API: %v", err)
		}
	}()
}

// Stop останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.srv.Shutdown(ctx)
}
