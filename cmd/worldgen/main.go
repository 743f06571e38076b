package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/annel0/mmo-worldgen/internal/api"
	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/mapgen"
	"github.com/annel0/mmo-worldgen/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации мира (иначе ENV WORLDGEN_CONFIG или дефолты)")
	seed := flag.Int64("seed", 0, "переопределение сида из конфигурации (0 — не переопределять)")
	outDir := flag.String("out", "", "директория снапшотов; пусто — не сохранять")
	serveAddr := flag.String("serve", "", "адрес диагностического REST API, например :8088; пусто — сгенерировать и выйти")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("worldgen"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🌍 Запуск генератора карты мира...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка загрузки конфигурации: %v", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	} else {
		cfg.Seed = config.SeedFromEnv(cfg.Seed)
	}

	if err := cfg.Validate(); err != nil {
		logging.Error("❌ Некорректная конфигурация: %v", err)
		os.Exit(1)
	}

	logging.Info("📋 Конфигурация: сид=%d, мир=%d блоков, слоёв=%d", cfg.Seed, cfg.WorldSize, len(cfg.Layers))

	// === ГЕНЕРАЦИЯ ===
	start := time.Now()
	pyramid, err := mapgen.GeneratePyramid(cfg)
	if err != nil {
		logging.Error("❌ Ошибка генерации пирамиды: %v", err)
		os.Exit(1)
	}
	logging.Info("✅ Пирамида построена за %v", time.Since(start))

	reportStatistics(pyramid)

	// === СНАПШОТ ===
	if *outDir != "" {
		saveSnapshot(pyramid, *outDir)
	}

	// === ДИАГНОСТИЧЕСКИЙ REST API ===
	if *serveAddr == "" {
		return
	}

	restServer, err := api.NewRestServer(api.Config{Addr: *serveAddr, Pyramid: pyramid})
	if err != nil {
		logging.Error("❌ Ошибка создания REST API: %v", err)
		os.Exit(1)
	}
	restServer.Start()

	logging.Info("🌐 REST API: http://localhost%s", *serveAddr)
	logging.Info("   curl http://localhost%s/health", *serveAddr)
	logging.Info("   curl http://localhost%s/api/map/info", *serveAddr)
	logging.Info("   curl 'http://localhost%s/api/map/layers/0/sample?x=100&z=100'", *serveAddr)

	// Ждем сигнала для завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := restServer.Stop(ctx); err != nil {
		logging.Error("Ошибка остановки REST API: %v", err)
	}
}

// reportStatistics логирует распределение категорий каждого слоя
func reportStatistics(pyramid *mapgen.WorldMapPyramid) {
	for i := 0; i < pyramid.LayerCount(); i++ {
		layer, _ := pyramid.LayerInfo(i)
		stats, _ := pyramid.Statistics(i)
		checksum, _ := pyramid.Checksum(i)

		cats := make([]int, 0, len(stats))
		for cat := range stats {
			cats = append(cats, int(cat))
		}
		sort.Ints(cats)

		logging.Info("📊 Слой %d (%s), %d×%d, checksum=%016x:",
			i, layer.Name, layer.Grid.Size(), layer.Grid.Size(), checksum)
		for _, cat := range cats {
			logging.Info("   категория %d: %.2f%%", cat, stats[uint8(cat)])
		}
	}
}

// saveSnapshot сохраняет пирамиду в хранилище снапшотов
func saveSnapshot(pyramid *mapgen.WorldMapPyramid, dir string) {
	store, err := storage.NewMapStorage(dir)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		return
	}
	defer store.Close()

	id, err := store.SaveSnapshot(pyramid)
	if err != nil {
		logging.Error("❌ Ошибка сохранения снапшота: %v", err)
		return
	}
	logging.Info("💾 Снапшот сохранён: %s", id)
}
