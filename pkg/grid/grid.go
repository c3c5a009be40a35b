// Package grid converts between linear indices and (x, y) coordinates for
// row-major pixel buffers.
package grid

// Coords returns the (x, y) position of a linear index in a buffer that is
// cols cells wide.
func Coords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Index returns the linear index of (x, y) in a buffer that is cols cells
// wide.
func Index(x, y, cols int) int {
	return y*cols + x
}
