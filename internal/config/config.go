package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Режимы сглаживания слоя. Majority — бинарное голосование (суша/вода),
// Mean — среднее по не-водным соседям с округлением до ближайшей категории.
const (
	SmoothMajority = "majority"
	SmoothMean     = "mean"
)

// WorldConfig описывает весь пирамидальный набор слоёв карты мира.
// Слои упорядочены от грубого к детальному; слой i > 0 всегда
// привязан к слою i-1 как к родителю.
type WorldConfig struct {
	Seed      int64         `yaml:"seed"`
	WorldSize int           `yaml:"world_size"` // сторона мира в блоках
	Workers   int           `yaml:"workers"`    // 0 — использовать GOMAXPROCS
	Layers    []LayerConfig `yaml:"layers"`
}

// LayerConfig описывает один слой пирамиды.
type LayerConfig struct {
	Name          string  `yaml:"name"`
	Resolution    int     `yaml:"resolution"`      // сторона сетки, степень двойки
	ScaleFactor   int     `yaml:"scale_factor"`    // отношение к разрешению родителя; 0 для корневого слоя
	SubSeedOffset int64   `yaml:"sub_seed_offset"` // смещение сида для декорреляции слоёв
	Frequency     float64 `yaml:"frequency"`       // частота основного шума (ячеек шума на карту)
	DetailFreq    float64 `yaml:"detail_frequency"`

	// Веса слагаемых сырого скаляра; сумма должна быть равна 1.
	NoiseWeight    float64 `yaml:"noise_weight"`
	LatitudeWeight float64 `yaml:"latitude_weight"`
	DetailWeight   float64 `yaml:"detail_weight"` // детальный перлин-шум

	Bands        []Band `yaml:"bands"` // пороговые полосы классификации, по возрастанию
	SmoothMode   string `yaml:"smooth_mode"`
	SmoothRadius int    `yaml:"smooth_radius"`
}

// Band — одна пороговая полоса: сырой скаляр ниже Max попадает в Category.
// Полосы слоя обязаны покрывать [0,1) без разрывов: первая полоса начинается
// с нуля, каждая следующая — с Max предыдущей, последняя имеет Max = 1.
type Band struct {
	Max      float64 `yaml:"max"`
	Category uint8   `yaml:"category"`
}

// BlocksPerPixel возвращает количество блоков мира на одну ячейку слоя
func (lc *LayerConfig) BlocksPerPixel(worldSize int) int {
	return worldSize / lc.Resolution
}

// Default возвращает конфигурацию по умолчанию: маска суши 256²,
// климат 1024² (k=4) и влажность 2048² (k=2).
func Default() *WorldConfig {
	return &WorldConfig{
		Seed:      1,
		WorldSize: 16384,
		Workers:   0,
		Layers: []LayerConfig{
			{
				Name:        "landmass",
				Resolution:  256,
				Frequency:   6.0,
				NoiseWeight: 1.0,
				Bands: []Band{
					{Max: 0.4, Category: 0}, // вода
					{Max: 1.0, Category: 1}, // суша (~60% покрытия)
				},
				SmoothMode:   SmoothMajority,
				SmoothRadius: 1,
			},
			{
				Name:           "climate",
				Resolution:     1024,
				ScaleFactor:    4,
				SubSeedOffset:  1000,
				Frequency:      24.0,
				NoiseWeight:    0.3,
				LatitudeWeight: 0.7,
				Bands: []Band{
					{Max: 0.25, Category: 4}, // мороз
					{Max: 0.5, Category: 3},  // холод
					{Max: 0.75, Category: 2}, // умеренный
					{Max: 1.0, Category: 1},  // тёплый (экватор)
				},
				SmoothMode:   SmoothMean,
				SmoothRadius: 1,
			},
			{
				Name:          "moisture",
				Resolution:    2048,
				ScaleFactor:   2,
				SubSeedOffset: 2000,
				Frequency:     48.0,
				DetailFreq:    96.0,
				NoiseWeight:   0.5,
				DetailWeight:  0.5,
				Bands: []Band{
					{Max: 0.35, Category: 1}, // засушливо
					{Max: 0.7, Category: 2},  // нормально
					{Max: 1.0, Category: 3},  // влажно
				},
				SmoothMode:   SmoothMean,
				SmoothRadius: 1,
			},
		},
	}
}

// Load читает YAML файл конфигурации мира.
// Если path == "", пытается прочитать из ENV WORLDGEN_CONFIG,
// иначе возвращает конфигурацию по умолчанию.
func Load(path string) (*WorldConfig, error) {
	if path == "" {
		path = os.Getenv("WORLDGEN_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	var cfg WorldConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора YAML: %w", err)
	}

	return &cfg, nil
}

// SeedFromEnv возвращает сид из переменной окружения WORLDGEN_SEED,
// либо fallback, если переменная не задана или некорректна.
func SeedFromEnv(fallback int64) int64 {
	if v := os.Getenv("WORLDGEN_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return seed
		}
	}
	return fallback
}

// Validate проверяет конфигурацию целиком. Любое нарушение — ошибка
// конфигурации, генерация не должна начинаться.
func (wc *WorldConfig) Validate() error {
	if wc.WorldSize <= 0 {
		return fmt.Errorf("world_size должен быть положительным, получено %d", wc.WorldSize)
	}
	if len(wc.Layers) == 0 {
		return fmt.Errorf("конфигурация не содержит ни одного слоя")
	}
	if wc.Workers < 0 {
		return fmt.Errorf("workers не может быть отрицательным: %d", wc.Workers)
	}

	for i := range wc.Layers {
		lc := &wc.Layers[i]
		if err := lc.validate(i, wc.WorldSize); err != nil {
			return err
		}

		// Разрешение дочернего слоя обязано быть точным кратным родительского.
		// Молчаливое рассогласование сломало бы контракт наследования воды.
		if i == 0 {
			if lc.ScaleFactor != 0 {
				return fmt.Errorf("слой %q: корневой слой не может иметь scale_factor (%d)", lc.Name, lc.ScaleFactor)
			}
		} else {
			parent := &wc.Layers[i-1]
			if lc.ScaleFactor < 1 {
				return fmt.Errorf("слой %q: scale_factor должен быть >= 1, получено %d", lc.Name, lc.ScaleFactor)
			}
			if lc.Resolution != parent.Resolution*lc.ScaleFactor {
				return fmt.Errorf("слой %q: разрешение %d не равно %d×%d родительского слоя %q",
					lc.Name, lc.Resolution, parent.Resolution, lc.ScaleFactor, parent.Name)
			}
		}
	}

	return nil
}

func (lc *LayerConfig) validate(index, worldSize int) error {
	if lc.Name == "" {
		return fmt.Errorf("слой %d: имя не задано", index)
	}
	if lc.Resolution <= 0 || lc.Resolution&(lc.Resolution-1) != 0 {
		return fmt.Errorf("слой %q: разрешение %d не является степенью двойки", lc.Name, lc.Resolution)
	}
	if worldSize%lc.Resolution != 0 {
		return fmt.Errorf("слой %q: world_size %d не делится на разрешение %d", lc.Name, worldSize, lc.Resolution)
	}
	if lc.Frequency <= 0 {
		return fmt.Errorf("слой %q: частота шума должна быть положительной", lc.Name)
	}
	if lc.DetailWeight > 0 && lc.DetailFreq <= 0 {
		return fmt.Errorf("слой %q: detail_frequency обязана быть положительной при detail_weight > 0", lc.Name)
	}

	sum := lc.NoiseWeight + lc.LatitudeWeight + lc.DetailWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("слой %q: сумма весов %.6f, ожидалась 1", lc.Name, sum)
	}

	if err := validateBands(lc.Name, lc.Bands); err != nil {
		return err
	}

	switch lc.SmoothMode {
	case SmoothMajority, SmoothMean:
	default:
		return fmt.Errorf("слой %q: неизвестный режим сглаживания %q", lc.Name, lc.SmoothMode)
	}
	if lc.SmoothRadius < 0 {
		return fmt.Errorf("слой %q: радиус сглаживания не может быть отрицательным", lc.Name)
	}

	return nil
}

// validateBands проверяет, что полосы покрывают [0,1) целиком,
// без разрывов и пересечений.
func validateBands(layer string, bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("слой %q: не задано ни одной пороговой полосы", layer)
	}

	prev := 0.0
	for i, b := range bands {
		if b.Max <= prev {
			return fmt.Errorf("слой %q: полоса %d имеет порог %.4f, не превышающий предыдущий %.4f",
				layer, i, b.Max, prev)
		}
		prev = b.Max
	}
	if bands[len(bands)-1].Max != 1.0 {
		return fmt.Errorf("слой %q: последняя полоса должна закрываться порогом 1.0, получено %.4f",
			layer, bands[len(bands)-1].Max)
	}

	return nil
}
