package mapgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-worldgen/internal/config"
)

// testWorldConfig — уменьшенная пирамида для тестов: 16 → 32 → 64
func testWorldConfig(seed int64) *config.WorldConfig {
	return &config.WorldConfig{
		Seed:      seed,
		WorldSize: 256,
		Workers:   4,
		Layers: []config.LayerConfig{
			{
				Name:        "landmass",
				Resolution:  16,
				Frequency:   4.0,
				NoiseWeight: 1.0,
				Bands: []config.Band{
					{Max: 0.4, Category: Water},
					{Max: 1.0, Category: Land},
				},
				SmoothMode:   config.SmoothMajority,
				SmoothRadius: 1,
			},
			{
				Name:           "climate",
				Resolution:     32,
				ScaleFactor:    2,
				SubSeedOffset:  1000,
				Frequency:      8.0,
				NoiseWeight:    0.3,
				LatitudeWeight: 0.7,
				Bands: []config.Band{
					{Max: 0.25, Category: ClimateFreezing},
					{Max: 0.5, Category: ClimateCold},
					{Max: 0.75, Category: ClimateTemperate},
					{Max: 1.0, Category: ClimateWarm},
				},
				SmoothMode:   config.SmoothMean,
				SmoothRadius: 1,
			},
			{
				Name:          "moisture",
				Resolution:    64,
				ScaleFactor:   2,
				SubSeedOffset: 2000,
				Frequency:     16.0,
				DetailFreq:    32.0,
				NoiseWeight:   0.5,
				DetailWeight:  0.5,
				Bands: []config.Band{
					{Max: 0.35, Category: MoistureArid},
					{Max: 0.7, Category: MoistureNormal},
					{Max: 1.0, Category: MoistureHumid},
				},
				SmoothMode:   config.SmoothMean,
				SmoothRadius: 1,
			},
		},
	}
}

func TestPyramidDeterminism(t *testing.T) {
	// Одинаковый сид — бит-идентичные сетки каждого слоя,
	// в том числе при параллельной генерации
	first, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	second, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	require.Equal(t, first.LayerCount(), second.LayerCount())
	for i := 0; i < first.LayerCount(); i++ {
		sum1, err := first.Checksum(i)
		require.NoError(t, err)
		sum2, err := second.Checksum(i)
		require.NoError(t, err)
		assert.Equal(t, sum1, sum2, "контрольные суммы слоя %d разошлись", i)

		l1, _ := first.LayerInfo(i)
		l2, _ := second.LayerInfo(i)
		assert.Equal(t, l1.Grid.Cells(), l2.Grid.Cells(), "ячейки слоя %d разошлись", i)
	}
}

func TestPyramidSeedsDiffer(t *testing.T) {
	first, err := GeneratePyramid(testWorldConfig(1))
	require.NoError(t, err)

	second, err := GeneratePyramid(testWorldConfig(2))
	require.NoError(t, err)

	sum1, _ := first.Checksum(0)
	sum2, _ := second.Checksum(0)
	assert.NotEqual(t, sum1, sum2, "разные сиды дали одинаковую маску суши")
}

func TestPyramidWaterPropagation(t *testing.T) {
	p, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	// Для каждого слоя N>0 и каждой ячейки: водный родитель — водный ребёнок
	for i := 1; i < p.LayerCount(); i++ {
		child, err := p.LayerInfo(i)
		require.NoError(t, err)
		parent, err := p.LayerInfo(i - 1)
		require.NoError(t, err)

		size := child.Grid.Size()
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				px := x / child.ScaleFactor
				py := y / child.ScaleFactor
				if parent.Grid.Get(px, py) == Water {
					require.Equal(t, Water, child.Grid.Get(x, y),
						"слой %d, ячейка (%d,%d): водный родитель (%d,%d) не унаследован", i, x, y, px, py)
				}
			}
		}
	}
}

func TestPyramidSampleAtClamping(t *testing.T) {
	p, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	worldSize := p.WorldSize()
	for layer := 0; layer < p.LayerCount(); layer++ {
		// Далеко за границей — та же категория, что у ближайшего края
		corner, err := p.SampleAt(layer, 0, 0)
		require.NoError(t, err)
		outside, err := p.SampleAt(layer, -1000000, -1000000)
		require.NoError(t, err)
		assert.Equal(t, corner, outside, "слой %d: отрицательный выход за границу", layer)

		edge, err := p.SampleAt(layer, worldSize-1, worldSize-1)
		require.NoError(t, err)
		far, err := p.SampleAt(layer, worldSize+100000, worldSize+100000)
		require.NoError(t, err)
		assert.Equal(t, edge, far, "слой %d: положительный выход за границу", layer)
	}
}

func TestPyramidSampleAtInvalidLayer(t *testing.T) {
	p, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	_, err = p.SampleAt(-1, 0, 0)
	assert.Error(t, err)
	_, err = p.SampleAt(p.LayerCount(), 0, 0)
	assert.Error(t, err)
}

func TestPyramidStatisticsSumTo100(t *testing.T) {
	p, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	for i := 0; i < p.LayerCount(); i++ {
		stats, err := p.Statistics(i)
		require.NoError(t, err)

		total := 0.0
		for _, pct := range stats {
			total += pct
		}
		assert.InDelta(t, 100.0, total, 0.1, "проценты слоя %d", i)
	}
}

func TestPyramidInvalidConfig(t *testing.T) {
	cfg := testWorldConfig(42)
	cfg.Layers[1].Resolution = 48 // не кратно 16 степенью двойки и не 16×2

	_, err := GeneratePyramid(cfg)
	assert.Error(t, err, "рассогласованные разрешения должны отвергаться до генерации")
}

func TestPyramidGridsFrozen(t *testing.T) {
	p, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	for i := 0; i < p.LayerCount(); i++ {
		layer, err := p.LayerInfo(i)
		require.NoError(t, err)
		assert.True(t, layer.Grid.Frozen(), "слой %d не заморожен", i)
	}
}

func TestRestorePyramidValidation(t *testing.T) {
	p, err := GeneratePyramid(testWorldConfig(42))
	require.NoError(t, err)

	layers := make([]Layer, 0, p.LayerCount())
	for i := 0; i < p.LayerCount(); i++ {
		l, _ := p.LayerInfo(i)
		layers = append(layers, l)
	}

	restored, err := RestorePyramid(p.Seed(), p.WorldSize(), layers)
	require.NoError(t, err)
	assert.Equal(t, p.LayerCount(), restored.LayerCount())

	// Незамороженная сетка отвергается
	bad := make([]Layer, len(layers))
	copy(bad, layers)
	bad[0].Grid = NewGrid(16)
	_, err = RestorePyramid(p.Seed(), p.WorldSize(), bad)
	assert.Error(t, err)
}
