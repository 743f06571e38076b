package vec

// Vec2 представляет целочисленные 2D координаты (ячейка сетки или блок мира)
type Vec2 struct {
	X, Y int
}

// ToParent преобразует координаты ячейки дочернего слоя в координаты
// родительской ячейки через целочисленное деление на масштабный коэффициент.
// То же деление используется и при генерации, и при сэмплировании.
func (v Vec2) ToParent(scale int) Vec2 {
	return Vec2{X: v.X / scale, Y: v.Y / scale}
}

// ToPixel преобразует мировые координаты в пиксельные координаты слоя
func (v Vec2) ToPixel(blocksPerPixel int) Vec2 {
	return Vec2{X: v.X / blocksPerPixel, Y: v.Y / blocksPerPixel}
}

// ClampTo ограничивает обе координаты диапазоном [0, size-1]
func (v Vec2) ClampTo(size int) Vec2 {
	c := v
	if c.X < 0 {
		c.X = 0
	} else if c.X >= size {
		c.X = size - 1
	}
	if c.Y < 0 {
		c.Y = 0
	} else if c.Y >= size {
		c.Y = size - 1
	}
	return c
}

// In проверяет, лежат ли координаты внутри квадратной сетки size×size
func (v Vec2) In(size int) bool {
	return v.X >= 0 && v.X < size && v.Y >= 0 && v.Y < size
}
