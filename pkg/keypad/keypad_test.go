package keypad

import "testing"

func TestQWERTYCoversAllKeys(t *testing.T) {
	seen := [16]bool{}
	for r, k := range QWERTY {
		if k > 0xF {
			t.Errorf("key %q maps outside the hex pad: 0x%X", r, k)
		}
		if seen[k] {
			t.Errorf("hex key 0x%X bound twice", k)
		}
		seen[k] = true
	}
	for k, ok := range seen {
		if !ok {
			t.Errorf("hex key 0x%X has no host binding", k)
		}
	}
}

func TestKeyLookup(t *testing.T) {
	tests := []struct {
		r    rune
		want uint8
	}{
		{'1', 0x1},
		{'4', 0xC},
		{'q', 0x4},
		{'Q', 0x4}, // uppercase folds
		{'x', 0x0},
		{'v', 0xF},
	}
	for _, tc := range tests {
		got, ok := QWERTY.Key(tc.r)
		if !ok || got != tc.want {
			t.Errorf("Key(%q) = (0x%X, %t); want (0x%X, true)", tc.r, got, ok, tc.want)
		}
	}

	if _, ok := QWERTY.Key('p'); ok {
		t.Errorf("Key('p'): expected no binding")
	}
}
