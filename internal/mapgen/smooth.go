package mapgen

// SmoothMode определяет политику объединения соседей при сглаживании
type SmoothMode int

const (
	// SmoothMajority — бинарное голосование: суша, если доля суши
	// среди соседей превышает 0.5. Для слоя маски суши.
	SmoothMajority SmoothMode = iota

	// SmoothMeanWaterAware — среднее по не-водным соседям с округлением
	// до ближайшей категории; водные ячейки не трогаются и не участвуют
	// в усреднении. Для многокатегорийных слоёв.
	SmoothMeanWaterAware
)

// Smooth возвращает сглаженную копию сетки. Входная сетка не изменяется:
// чтение всегда идёт из исходного буфера, запись — в новый, поэтому
// внутри прохода нет зависимости от порядка обхода.
//
// Окрестность ячейки — все ячейки в квадрате (2r+1)², попадающие в
// границы сетки; никакого заворачивания и синтетического паддинга.
func Smooth(src *Grid, radius int, mode SmoothMode) *Grid {
	size := src.Size()
	dst := NewGrid(size)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			switch mode {
			case SmoothMajority:
				dst.Set(x, y, majorityAt(src, x, y, radius))
			case SmoothMeanWaterAware:
				dst.Set(x, y, waterAwareMeanAt(src, x, y, radius))
			}
		}
	}

	return dst
}

// majorityAt голосует по окрестности: 1, если суши больше половины
func majorityAt(src *Grid, x, y, radius int) uint8 {
	size := src.Size()
	land, total := 0, 0

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= size || ny < 0 || ny >= size {
				continue
			}
			total++
			if src.Get(nx, ny) != Water {
				land++
			}
		}
	}

	if float64(land) > float64(total)*0.5 {
		return Land
	}
	return Water
}

// waterAwareMeanAt усредняет категории не-водных соседей.
// Водная входная ячейка остаётся водой; при полном отсутствии
// не-водных соседей результат — вода (защитный fallback).
func waterAwareMeanAt(src *Grid, x, y, radius int) uint8 {
	if src.Get(x, y) == Water {
		return Water
	}

	size := src.Size()
	sum, count := 0, 0

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= size || ny < 0 || ny >= size {
				continue
			}
			c := src.Get(nx, ny)
			if c == Water {
				continue
			}
			sum += int(c)
			count++
		}
	}

	if count == 0 {
		return Water
	}

	// Округление к ближайшей категории
	return uint8((sum + count/2) / count)
}
