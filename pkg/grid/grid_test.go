package grid

import "testing"

func TestCoords(t *testing.T) {
	tests := []struct {
		index int
		cols  int
		wantX int
		wantY int
	}{
		// 64 cols (CHIP-8 display width)
		{0, 64, 0, 0},
		{1, 64, 1, 0},
		{63, 64, 63, 0},
		{64, 64, 0, 1},
		{65, 64, 1, 1},
		{127, 64, 63, 1},
		{128, 64, 0, 2},
		{2047, 64, 63, 31},

		// 8 cols (sprite width)
		{0, 8, 0, 0},
		{7, 8, 7, 0},
		{8, 8, 0, 1},
		{15, 8, 7, 1},
	}

	for _, tc := range tests {
		gotX, gotY := Coords(tc.index, tc.cols)
		if gotX != tc.wantX || gotY != tc.wantY {
			t.Errorf("Coords(%d, %d) = (%d, %d); want (%d, %d)", tc.index, tc.cols, gotX, gotY, tc.wantX, tc.wantY)
		}
	}
}

func TestIndexRoundTrip(t *testing.T) {
	for index := 0; index < 2048; index += 33 {
		x, y := Coords(index, 64)
		if got := Index(x, y, 64); got != index {
			t.Errorf("Index(%d, %d, 64) = %d; want %d", x, y, got, index)
		}
	}
}
