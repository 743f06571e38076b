package mapgen

import "math"

// NoiseField — детерминированная 2D функция шума: одинаковый вход
// (x, z, subSeed) всегда даёт одинаковый результат в [-1, 1],
// независимо от порядка и количества вызовов.
type NoiseField interface {
	Sample(x, z float64, subSeed int64) float64
}

// Константы скоса симплекс-решётки
const (
	noiseF2   = 0.36602540378443865 // (sqrt(3)-1)/2
	noiseG2   = 0.21132486540518713 // (3-sqrt(3))/6
	noiseNorm = 70.0
)

// 8 фиксированных направлений градиентов: 4 осевых и 4 диагональных
var noiseGradients = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
}

// SimplexNoise — симплекс-шум без внутреннего состояния.
// Весь «рандом» выводится из целочисленного хеша узла решётки и под-сида,
// поэтому результат воспроизводим на любой машине.
type SimplexNoise struct{}

// Sample возвращает значение шума в точке (x, z) для указанного под-сида
func (SimplexNoise) Sample(x, z float64, subSeed int64) float64 {
	// Скос координат в треугольную решётку
	s := (x + z) * noiseF2
	i := math.Floor(x + s)
	j := math.Floor(z + s)

	t := (i + j) * noiseG2
	x0 := x - (i - t)
	z0 := z - (j - t)

	// Выбор треугольника внутри скошенной ячейки
	var i1, j1 int64
	if x0 > z0 {
		i1, j1 = 1, 0
	} else {
		i1, j1 = 0, 1
	}

	x1 := x0 - float64(i1) + noiseG2
	z1 := z0 - float64(j1) + noiseG2
	x2 := x0 - 1 + 2*noiseG2
	z2 := z0 - 1 + 2*noiseG2

	ii := int64(i)
	jj := int64(j)

	n := cornerContribution(ii, jj, x0, z0, subSeed) +
		cornerContribution(ii+i1, jj+j1, x1, z1, subSeed) +
		cornerContribution(ii+1, jj+1, x2, z2, subSeed)

	// Нормализация с защитой от редкого выхода за [-1, 1]
	v := n * noiseNorm
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return v
}

// cornerContribution считает вклад одного угла симплекса:
// затухание t⁴, умноженное на скалярное произведение градиента угла
// и вектора смещения.
func cornerContribution(ix, iz int64, dx, dz float64, subSeed int64) float64 {
	t := 0.5 - dx*dx - dz*dz
	if t < 0 {
		return 0
	}
	t *= t
	t *= t // t⁴

	g := noiseGradients[latticeHash(ix, iz, subSeed)%8]
	return t * (g[0]*dx + g[1]*dz)
}

// latticeHash сворачивает координаты узла решётки и под-сид в значение 0..255.
// Только целочисленная арифметика: никаких float-производных входов
// и глобального случайного состояния.
func latticeHash(ix, iz, subSeed int64) int {
	h := subSeed
	h = ((h << 5) + h) + ix
	h = ((h << 5) + h) + iz
	h = ((h << 5) + h) + (h >> 13)
	return int(uint64(h) & 255)
}
