package layout

import (
	"errors"
	"math"
	"testing"
)

const (
	red   RouteKey = "ff0000|train_normal"
	green RouteKey = "00ff00|train_normal"
	blue  RouteKey = "0000ff|train_normal"
)

func TestResolveBundlesMergesSharedKeys(t *testing.T) {
	groups := map[string][]RouteKey{
		"a": {red, blue},
		"c": {blue, red},
		"d": {green},
	}
	observations := map[RouteKey][]int{
		red:   {0, 0},
		blue:  {0, 0},
		green: {2},
	}

	bundles, err := ResolveBundles(groups, observations)
	if err != nil {
		t.Fatalf("ResolveBundles failed: %v", err)
	}

	if len(bundles.Bundles) != 2 {
		t.Fatalf("expected 2 bundles, got %d: %v", len(bundles.Bundles), bundles.Bundles)
	}
	if bundles.Directions[red] != 0 || bundles.Directions[blue] != 0 {
		t.Errorf("red/blue directions = %d/%d, want 0/0", bundles.Directions[red], bundles.Directions[blue])
	}
	if bundles.Directions[green] != 2 {
		t.Errorf("green direction = %d, want 2", bundles.Directions[green])
	}

	// every observed key lands in exactly one bundle
	owners := make(map[RouteKey]int)
	for _, bundle := range bundles.Bundles {
		for _, key := range bundle {
			owners[key]++
		}
	}
	for key := range observations {
		if owners[key] != 1 {
			t.Errorf("key %s appears in %d bundles", key, owners[key])
		}
	}
}

func TestResolveBundlesTransitiveMerge(t *testing.T) {
	groups := map[string][]RouteKey{
		"a": {red},
		"b": {blue},
		"c": {red, blue},
	}
	observations := map[RouteKey][]int{red: {1}, blue: {1}}

	bundles, err := ResolveBundles(groups, observations)
	if err != nil {
		t.Fatalf("ResolveBundles failed: %v", err)
	}
	if len(bundles.Bundles) != 1 || len(bundles.Bundles[0]) != 2 {
		t.Fatalf("expected a single bundle of two keys, got %v", bundles.Bundles)
	}
	if !bundles.Rotate {
		t.Error("diagonal-only station should rotate")
	}
}

func TestResolveBundlesIncomplete(t *testing.T) {
	groups := map[string][]RouteKey{"a": {red}}
	observations := map[RouteKey][]int{red: {0}, green: {0}}

	_, err := ResolveBundles(groups, observations)
	if !errors.Is(err, ErrBundleIncomplete) {
		t.Fatalf("expected ErrBundleIncomplete, got %v", err)
	}
}

func TestValidateBundlesConflict(t *testing.T) {
	bundles := [][]RouteKey{{blue, red}, {green, red}}
	err := validateBundles(bundles, map[RouteKey][]int{red: {0}})
	if !errors.Is(err, ErrBundleConflict) {
		t.Fatalf("expected ErrBundleConflict, got %v", err)
	}
}

func TestResolveBundlesNeverConflicts(t *testing.T) {
	groups := map[string][]RouteKey{
		"a": {red, blue},
		"b": {green, red},
		"c": {blue},
		"d": {green, blue, red},
	}
	observations := map[RouteKey][]int{red: {0}, green: {1}, blue: {0}}

	bundles, err := ResolveBundles(groups, observations)
	if errors.Is(err, ErrBundleConflict) {
		t.Fatalf("overlapping groups should merge, got %v", err)
	}
	if err != nil {
		t.Fatalf("ResolveBundles failed: %v", err)
	}
	if len(bundles.Bundles) != 1 || len(bundles.Bundles[0]) != 3 {
		t.Errorf("expected one bundle of 3 keys, got %v", bundles.Bundles)
	}
}

func TestFallbackBundles(t *testing.T) {
	groups := map[string][]RouteKey{"a": {red}, "b": {blue}}
	observations := map[RouteKey][]int{red: {2}, blue: {2}, green: {0}}

	bundles := FallbackBundles(groups, observations)
	if len(bundles.Bundles) != 1 || len(bundles.Bundles[0]) != 3 {
		t.Fatalf("expected one bundle with every key, got %v", bundles.Bundles)
	}
	for _, key := range []RouteKey{red, blue, green} {
		if bundles.Directions[key] != 2 {
			t.Errorf("direction of %s = %d, want 2", key, bundles.Directions[key])
		}
	}
}

func TestOffsetsAreCentred(t *testing.T) {
	for n := 1; n <= 6; n++ {
		keys := make([]RouteKey, n)
		observations := make(map[RouteKey][]int)
		for i := range keys {
			keys[i] = NewRouteKey(i, "train_normal")
			observations[keys[i]] = []int{0}
		}

		bundles, err := ResolveBundles(map[string][]RouteKey{"a": keys}, observations)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}

		offsets := make([]float64, n)
		sum := 0.0
		for i, key := range keys {
			_, offset, ok := bundles.Offset(key)
			if !ok {
				t.Fatalf("n=%d: no offset for %s", n, key)
			}
			offsets[i] = offset
			sum += offset
		}

		if math.Abs(sum) > 1e-9 {
			t.Errorf("n=%d: offsets %v do not sum to zero", n, offsets)
		}
		for i := range offsets {
			if math.Abs(offsets[i]+offsets[n-1-i]) > 1e-9 {
				t.Errorf("n=%d: offsets %v are not symmetric", n, offsets)
				break
			}
		}
		for i := 1; i < n; i++ {
			if offsets[i]-offsets[i-1] != 1 {
				t.Errorf("n=%d: offsets %v are not unit spaced", n, offsets)
				break
			}
		}
	}
}

func TestOffsetUnknownKey(t *testing.T) {
	bundles := FallbackBundles(map[string][]RouteKey{"a": {red}}, map[RouteKey][]int{red: {0}})
	if _, _, ok := bundles.Offset(blue); ok {
		t.Error("expected no offset for a key that is not at the station")
	}
}

func TestFootprint(t *testing.T) {
	tests := []struct {
		name       string
		counts     [4]int
		wantRotate bool
		wantWidth  float64
		wantHeight float64
	}{
		{"empty", [4]int{}, false, 0, 0},
		{"single line", [4]int{1, 0, 0, 0}, false, 0, 0},
		{"three horizontal", [4]int{3, 0, 0, 0}, false, 2, 0},
		{"cross", [4]int{2, 0, 3, 0}, false, 1, 2},
		{"diagonal heavy", [4]int{0, 3, 0, 1}, true, 2, 0},
		{"secondary diagonal", [4]int{2, 3, 1, 0}, false, 2 * math.Sqrt(0.5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rotate, width, height := footprint(tt.counts)
			if rotate != tt.wantRotate {
				t.Errorf("rotate = %v, want %v", rotate, tt.wantRotate)
			}
			if math.Abs(width-tt.wantWidth) > 1e-9 || math.Abs(height-tt.wantHeight) > 1e-9 {
				t.Errorf("size = %.4f x %.4f, want %.4f x %.4f", width, height, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestFootprintMonotonic(t *testing.T) {
	const limit = 4
	var counts [4]int
	for counts[0] = 0; counts[0] < limit; counts[0]++ {
		for counts[1] = 0; counts[1] < limit; counts[1]++ {
			for counts[2] = 0; counts[2] < limit; counts[2]++ {
				for counts[3] = 0; counts[3] < limit; counts[3]++ {
					rotate, width, height := footprint(counts)
					for direction := 0; direction < 4; direction++ {
						grown := counts
						grown[direction]++
						grownRotate, grownWidth, grownHeight := footprint(grown)
						if grownRotate != rotate {
							continue
						}
						if grownWidth < width || grownHeight < height {
							t.Errorf("adding a key in direction %d to %v shrank %.3fx%.3f to %.3fx%.3f",
								direction, counts, width, height, grownWidth, grownHeight)
						}
					}
				}
			}
		}
	}
}

func TestMergeBundlesDisjoint(t *testing.T) {
	merged := mergeBundles([][]RouteKey{{red}, {blue}, {green, red}, {}, {blue}})
	if len(merged) != 2 {
		t.Fatalf("expected 2 bundles, got %v", merged)
	}
	if merged[0][0] != blue || len(merged[1]) != 2 {
		t.Errorf("unexpected bundles %v", merged)
	}
}
