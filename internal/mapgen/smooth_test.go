package mapgen

import "testing"

func fillGrid(size int, category uint8) *Grid {
	g := NewGrid(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g.Set(x, y, category)
		}
	}
	return g
}

func TestSmoothMajorityUniformLand(t *testing.T) {
	g := fillGrid(8, Land)
	out := Smooth(g, 1, SmoothMajority)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if out.Get(x, y) != Land {
				t.Fatalf("Однородная суша изменилась в (%d,%d)", x, y)
			}
		}
	}
}

func TestSmoothMajorityRemovesLoneLand(t *testing.T) {
	g := fillGrid(5, Water)
	g.Set(2, 2, Land)

	out := Smooth(g, 1, SmoothMajority)
	if out.Get(2, 2) != Water {
		t.Error("Одинокая ячейка суши должна исчезнуть при голосовании радиуса 1")
	}
}

func TestSmoothDoesNotMutateInput(t *testing.T) {
	g := fillGrid(4, Water)
	g.Set(1, 1, Land)
	before := g.Cells()

	Smooth(g, 1, SmoothMajority)
	Smooth(g, 1, SmoothMeanWaterAware)

	after := g.Cells()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("Сглаживание изменило входную сетку: индекс %d", i)
		}
	}
}

func TestSmoothMeanKeepsWater(t *testing.T) {
	g := fillGrid(6, ClimateTemperate)
	g.Set(3, 3, Water)

	out := Smooth(g, 1, SmoothMeanWaterAware)
	if out.Get(3, 3) != Water {
		t.Error("Водная ячейка обязана остаться водой при water-aware усреднении")
	}
}

func TestSmoothMeanIgnoresWaterNeighbors(t *testing.T) {
	// Тёплая ячейка, окружённая водой по трём сторонам: вода не должна
	// тянуть среднее вниз, категория сохраняется
	g := fillGrid(3, Water)
	g.Set(1, 1, ClimateWarm)
	g.Set(2, 1, ClimateWarm)

	out := Smooth(g, 1, SmoothMeanWaterAware)
	if out.Get(1, 1) != ClimateWarm {
		t.Errorf("Ожидалась категория %d, получено %d", ClimateWarm, out.Get(1, 1))
	}
}

func TestSmoothMeanIdempotentOnUniformInterior(t *testing.T) {
	// Внутренность однородного региона без воды в радиусе не меняется
	g := fillGrid(8, ClimateCold)

	out := Smooth(g, 2, SmoothMeanWaterAware)
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			if out.Get(x, y) != ClimateCold {
				t.Fatalf("Внутренняя ячейка (%d,%d) изменилась: %d", x, y, out.Get(x, y))
			}
		}
	}
}

func TestSmoothMeanRoundsToNearestCategory(t *testing.T) {
	// Окрестность из категорий 1 и 3 поровну со средним 2
	g := NewGrid(2)
	g.Set(0, 0, ClimateWarm)     // 1
	g.Set(1, 0, ClimateCold)     // 3
	g.Set(0, 1, ClimateWarm)     // 1
	g.Set(1, 1, ClimateCold)     // 3
	out := Smooth(g, 1, SmoothMeanWaterAware)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if out.Get(x, y) != ClimateTemperate {
				t.Errorf("Ячейка (%d,%d): ожидалось %d, получено %d",
					x, y, ClimateTemperate, out.Get(x, y))
			}
		}
	}
}

func TestSmoothRadiusLargerThanGrid(t *testing.T) {
	// Радиус больше сетки деградирует до проверенных границ, не падает
	g := fillGrid(4, Land)
	out := Smooth(g, 10, SmoothMajority)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if out.Get(x, y) != Land {
				t.Fatalf("Ячейка (%d,%d) изменилась при большом радиусе", x, y)
			}
		}
	}
}
