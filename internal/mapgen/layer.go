package mapgen

import (
	"fmt"
	"math"
	"runtime"

	"github.com/aquilax/go-perlin"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/mmo-worldgen/internal/config"
	"github.com/annel0/mmo-worldgen/internal/vec"
)

// Параметры детального перлин-шума (сглаживание/частота/октавы)
const (
	detailAlpha   = 2.0
	detailBeta    = 2.0
	detailOctaves = 3
)

// LayerGenerator создаёт классифицированную сетку одного слоя:
// сырой скаляр из шума (и, опционально, широты и детального шума),
// наследование воды от родителя, пороговая классификация, сглаживание.
type LayerGenerator struct {
	cfg     config.LayerConfig
	subSeed int64
	noise   NoiseField
	detail  *perlin.Perlin // nil, если слой не использует детальный шум
	workers int
}

// NewLayerGenerator создаёт генератор слоя. worldSeed — базовый сид
// пирамиды; под-сид слоя выводится из него смещением из конфигурации,
// чтобы слои были декоррелированы.
func NewLayerGenerator(cfg config.LayerConfig, worldSeed int64, workers int, noise NoiseField) *LayerGenerator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	lg := &LayerGenerator{
		cfg:     cfg,
		subSeed: worldSeed + cfg.SubSeedOffset,
		noise:   noise,
		workers: workers,
	}

	if cfg.DetailWeight > 0 {
		// Отдельный сид, чтобы детальный шум не повторял основной
		lg.detail = perlin.NewPerlin(detailAlpha, detailBeta, detailOctaves, lg.subSeed+1)
	}

	return lg
}

// Generate строит замороженную сетку слоя. parent — уже замороженная
// сетка родительского слоя (nil для корневого): её водные ячейки
// безусловно наследуются через целочисленное деление координат на
// масштабный коэффициент.
func (lg *LayerGenerator) Generate(parent *Grid) (*Grid, error) {
	res := lg.cfg.Resolution

	if parent == nil {
		if lg.cfg.ScaleFactor != 0 {
			return nil, fmt.Errorf("слой %q: scale_factor %d задан, но родительская сетка отсутствует",
				lg.cfg.Name, lg.cfg.ScaleFactor)
		}
	} else {
		if !parent.Frozen() {
			return nil, fmt.Errorf("слой %q: родительская сетка не заморожена", lg.cfg.Name)
		}
		if lg.cfg.ScaleFactor < 1 || parent.Size()*lg.cfg.ScaleFactor != res {
			return nil, fmt.Errorf("слой %q: разрешение %d не кратно родительскому %d (scale_factor %d)",
				lg.cfg.Name, res, parent.Size(), lg.cfg.ScaleFactor)
		}
	}

	mode, err := smoothMode(lg.cfg.SmoothMode)
	if err != nil {
		return nil, fmt.Errorf("слой %q: %w", lg.cfg.Name, err)
	}

	raw := NewGrid(res)

	// Построчная параллельная генерация: каждая горутина пишет только
	// свои строки, читает только неизменяемые входы.
	eg := errgroup.Group{}
	eg.SetLimit(lg.workers)

	block := res / lg.workers
	if block < 1 {
		block = 1
	}

	for start := 0; start < res; start += block {
		end := start + block
		if end > res {
			end = res
		}
		start, end := start, end
		eg.Go(func() error {
			lg.generateRows(raw, parent, start, end)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("слой %q: ошибка генерации: %w", lg.cfg.Name, err)
	}

	smoothed := Smooth(raw, lg.cfg.SmoothRadius, mode)

	// Голосование большинством может перезаписать унаследованную воду,
	// поэтому после сглаживания наследование применяется повторно:
	// водный родитель — водный ребёнок, при любом режиме.
	if parent != nil {
		lg.propagateParentWater(smoothed, parent)
	}

	smoothed.Freeze()
	return smoothed, nil
}

// propagateParentWater принудительно ставит воду во всех ячейках,
// чей родитель — вода
func (lg *LayerGenerator) propagateParentWater(grid, parent *Grid) {
	res := lg.cfg.Resolution
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			pp := vec.Vec2{X: x, Y: y}.ToParent(lg.cfg.ScaleFactor)
			if parent.Get(pp.X, pp.Y) == Water {
				grid.Set(x, y, Water)
			}
		}
	}
}

// generateRows заполняет строки [yStart, yEnd) сырой сетки
func (lg *LayerGenerator) generateRows(raw, parent *Grid, yStart, yEnd int) {
	res := lg.cfg.Resolution

	for y := yStart; y < yEnd; y++ {
		for x := 0; x < res; x++ {
			// Вода родителя распространяется вниз без классификации
			if parent != nil {
				pp := vec.Vec2{X: x, Y: y}.ToParent(lg.cfg.ScaleFactor)
				if parent.Get(pp.X, pp.Y) == Water {
					raw.Set(x, y, Water)
					continue
				}
			}

			nx := float64(x) / float64(res)
			ny := float64(y) / float64(res)
			raw.Set(x, y, lg.classify(lg.rawValue(nx, ny)))
		}
	}
}

// rawValue считает сырой скаляр ячейки в [0,1): взвешенная сумма
// нормализованного шума, широтного члена и детального шума.
// Веса в сумме дают 1 (проверено конфигурацией).
func (lg *LayerGenerator) rawValue(nx, ny float64) float64 {
	v := 0.0

	if lg.cfg.NoiseWeight > 0 {
		n := lg.noise.Sample(nx*lg.cfg.Frequency, ny*lg.cfg.Frequency, lg.subSeed)
		v += lg.cfg.NoiseWeight * (n + 1.0) / 2.0
	}

	if lg.cfg.LatitudeWeight > 0 {
		// Пик на вертикальной середине карты — «экваторе»
		lat := 1.0 - math.Abs(2.0*(ny-0.5))
		v += lg.cfg.LatitudeWeight * lat
	}

	if lg.cfg.DetailWeight > 0 {
		d := lg.detail.Noise2D(nx*lg.cfg.DetailFreq, ny*lg.cfg.DetailFreq)
		v += lg.cfg.DetailWeight * (d + 1.0) / 2.0
	}

	return v
}

// classify относит сырой скаляр к первой полосе, чей порог он не достиг.
// Полосы покрывают [0,1) без разрывов, поэтому неклассифицированных
// ячеек не бывает; значения >= 1 попадают в последнюю полосу.
func (lg *LayerGenerator) classify(raw float64) uint8 {
	bands := lg.cfg.Bands
	for _, b := range bands {
		if raw < b.Max {
			return b.Category
		}
	}
	return bands[len(bands)-1].Category
}

// smoothMode переводит строковый режим из конфигурации во внутренний.
// Конфигурация валидирует режим на пути GeneratePyramid, но генератор
// слоя доступен и напрямую, поэтому неизвестный режим — ошибка,
// а не молчаливый fallback.
func smoothMode(mode string) (SmoothMode, error) {
	switch mode {
	case config.SmoothMajority:
		return SmoothMajority, nil
	case config.SmoothMean:
		return SmoothMeanWaterAware, nil
	default:
		return 0, fmt.Errorf("неизвестный режим сглаживания %q", mode)
	}
}
