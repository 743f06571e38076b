package mapgen

import (
	"fmt"
	"time"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/annel0/mmo-worldgen/internal/vec"
)

// Layer — один уровень пирамиды: замороженная сетка плюс константы
// отображения координат.
type Layer struct {
	Name           string
	Grid           *Grid
	BlocksPerPixel int
	ScaleFactor    int // 0 для корневого слоя
}

// WorldMapPyramid владеет упорядоченным набором сгенерированных слоёв
// одного сида. После построения пирамида неизменяема; это единственный
// объект, который опрашивает остальная игра.
type WorldMapPyramid struct {
	seed      int64
	worldSize int
	layers    []Layer
}

// GeneratePyramid генерирует все слои конфигурации сверху вниз.
// Конфигурация валидируется до начала генерации: любое нарушение —
// ошибка построения, частично сгенерированных пирамид не бывает.
func GeneratePyramid(cfg *config.WorldConfig) (*WorldMapPyramid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация мира: %w", err)
	}

	logger := logging.GetMapgenLogger()
	logger.Info("Генерация пирамиды карты: сид=%d, мир=%d блоков, слоёв=%d",
		cfg.Seed, cfg.WorldSize, len(cfg.Layers))

	metrics := getGenerationMetrics()
	noise := SimplexNoise{}

	pyramid := &WorldMapPyramid{
		seed:      cfg.Seed,
		worldSize: cfg.WorldSize,
		layers:    make([]Layer, 0, len(cfg.Layers)),
	}

	var parent *Grid
	for i, lc := range cfg.Layers {
		start := time.Now()

		lg := NewLayerGenerator(lc, cfg.Seed, cfg.Workers, noise)
		grid, err := lg.Generate(parent)
		if err != nil {
			return nil, fmt.Errorf("слой %d (%q): %w", i, lc.Name, err)
		}

		elapsed := time.Since(start)
		metrics.layerDuration.WithLabelValues(lc.Name).Observe(elapsed.Seconds())
		metrics.cellsTotal.WithLabelValues(lc.Name).Add(float64(lc.Resolution * lc.Resolution))

		logger.Debug("Слой %q: %d×%d за %v", lc.Name, lc.Resolution, lc.Resolution, elapsed)

		pyramid.layers = append(pyramid.layers, Layer{
			Name:           lc.Name,
			Grid:           grid,
			BlocksPerPixel: lc.BlocksPerPixel(cfg.WorldSize),
			ScaleFactor:    lc.ScaleFactor,
		})
		parent = grid
	}

	logger.Info("Пирамида построена: %d слоёв", len(pyramid.layers))
	return pyramid, nil
}

// RestorePyramid собирает пирамиду из уже замороженных сеток
// (загрузка снапшота). Проверяются те же инварианты разрешений,
// что и при генерации.
func RestorePyramid(seed int64, worldSize int, layers []Layer) (*WorldMapPyramid, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("пирамида не может быть пустой")
	}

	for i, l := range layers {
		if l.Grid == nil || !l.Grid.Frozen() {
			return nil, fmt.Errorf("слой %d (%q): сетка отсутствует или не заморожена", i, l.Name)
		}
		if l.BlocksPerPixel <= 0 || l.Grid.Size()*l.BlocksPerPixel != worldSize {
			return nil, fmt.Errorf("слой %d (%q): blocksPerPixel %d не согласован с миром %d",
				i, l.Name, l.BlocksPerPixel, worldSize)
		}
		if i > 0 {
			prev := layers[i-1]
			if l.ScaleFactor < 1 || prev.Grid.Size()*l.ScaleFactor != l.Grid.Size() {
				return nil, fmt.Errorf("слой %d (%q): разрешение %d не кратно родительскому %d",
					i, l.Name, l.Grid.Size(), prev.Grid.Size())
			}
		}
	}

	return &WorldMapPyramid{seed: seed, worldSize: worldSize, layers: layers}, nil
}

// Seed возвращает сид, из которого построена пирамида
func (p *WorldMapPyramid) Seed() int64 {
	return p.seed
}

// WorldSize возвращает сторону мира в блоках
func (p *WorldMapPyramid) WorldSize() int {
	return p.worldSize
}

// LayerCount возвращает количество слоёв
func (p *WorldMapPyramid) LayerCount() int {
	return len(p.layers)
}

// LayerInfo возвращает описание слоя по индексу
func (p *WorldMapPyramid) LayerInfo(index int) (Layer, error) {
	if index < 0 || index >= len(p.layers) {
		return Layer{}, fmt.Errorf("индекс слоя %d вне диапазона [0, %d)", index, len(p.layers))
	}
	return p.layers[index], nil
}

// SampleAt возвращает категорию ячейки слоя для мировых координат.
// Координаты вне покрытия мира прижимаются к ближайшей граничной
// ячейке: запросы у края мира — штатная ситуация, не ошибка.
func (p *WorldMapPyramid) SampleAt(layerIndex, worldX, worldZ int) (uint8, error) {
	if layerIndex < 0 || layerIndex >= len(p.layers) {
		return 0, fmt.Errorf("индекс слоя %d вне диапазона [0, %d)", layerIndex, len(p.layers))
	}

	layer := p.layers[layerIndex]
	px := vec.Vec2{X: worldX, Y: worldZ}.
		ToPixel(layer.BlocksPerPixel).
		ClampTo(layer.Grid.Size())

	return layer.Grid.Get(px.X, px.Y), nil
}

// Statistics возвращает распределение категорий слоя в процентах
func (p *WorldMapPyramid) Statistics(layerIndex int) (map[uint8]float64, error) {
	if layerIndex < 0 || layerIndex >= len(p.layers) {
		return nil, fmt.Errorf("индекс слоя %d вне диапазона [0, %d)", layerIndex, len(p.layers))
	}
	return p.layers[layerIndex].Grid.Stats(), nil
}

// Checksum возвращает xxhash64 сетки слоя
func (p *WorldMapPyramid) Checksum(layerIndex int) (uint64, error) {
	if layerIndex < 0 || layerIndex >= len(p.layers) {
		return 0, fmt.Errorf("индекс слоя %d вне диапазона [0, %d)", layerIndex, len(p.layers))
	}
	return p.layers[layerIndex].Grid.Checksum(), nil
}
