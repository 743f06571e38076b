package mapgen

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Water — зарезервированная категория 0. Она наследуется безусловно:
// если родительская ячейка — вода, все её дочерние ячейки — вода.
const Water uint8 = 0

// Категории слоя маски суши
const (
	Land uint8 = 1
)

// Категории климатического слоя
const (
	ClimateWarm uint8 = iota + 1
	ClimateTemperate
	ClimateCold
	ClimateFreezing
)

// Категории слоя влажности
const (
	MoistureArid uint8 = iota + 1
	MoistureNormal
	MoistureHumid
)

// Grid — квадратная сетка классифицированных ячеек, по байту на ячейку.
// После заморозки сетка неизменяема и может читаться из любого числа
// горутин без блокировок.
type Grid struct {
	size   int
	cells  []uint8
	frozen bool
}

// NewGrid создаёт пустую (полностью водную) сетку size×size
func NewGrid(size int) *Grid {
	return &Grid{
		size:  size,
		cells: make([]uint8, size*size),
	}
}

// GridFromCells восстанавливает сетку из сохранённых ячеек (уже замороженную)
func GridFromCells(size int, cells []uint8) (*Grid, error) {
	if len(cells) != size*size {
		return nil, fmt.Errorf("ожидалось %d ячеек для сетки %d×%d, получено %d",
			size*size, size, size, len(cells))
	}
	return &Grid{size: size, cells: cells, frozen: true}, nil
}

// Size возвращает сторону сетки
func (g *Grid) Size() int {
	return g.size
}

// Get возвращает категорию ячейки (x, y)
func (g *Grid) Get(x, y int) uint8 {
	return g.cells[y*g.size+x]
}

// Set устанавливает категорию ячейки. Вызов после заморозки —
// программная ошибка.
func (g *Grid) Set(x, y int, category uint8) {
	if g.frozen {
		panic("mapgen: запись в замороженную сетку")
	}
	g.cells[y*g.size+x] = category
}

// Freeze помечает сетку неизменяемой
func (g *Grid) Freeze() {
	g.frozen = true
}

// Frozen сообщает, заморожена ли сетка
func (g *Grid) Frozen() bool {
	return g.frozen
}

// Cells возвращает копию ячеек (для сериализации)
func (g *Grid) Cells() []uint8 {
	out := make([]uint8, len(g.cells))
	copy(out, g.cells)
	return out
}

// Checksum возвращает xxhash64 от размеров и содержимого сетки.
// Используется тестами детерминизма и проверкой целостности снапшотов.
func (g *Grid) Checksum() uint64 {
	d := xxhash.New()

	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(g.size))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(g.size))
	d.Write(dims[:])
	d.Write(g.cells)

	return d.Sum64()
}

// Stats возвращает распределение категорий в процентах от общего
// числа ячеек. Диагностический вывод, не игровой контракт.
func (g *Grid) Stats() map[uint8]float64 {
	counts := make(map[uint8]int)
	for _, c := range g.cells {
		counts[c]++
	}

	total := float64(len(g.cells))
	stats := make(map[uint8]float64, len(counts))
	for cat, n := range counts {
		stats[cat] = float64(n) * 100.0 / total
	}
	return stats
}
