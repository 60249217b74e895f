package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mini-rodalies-3d/metromap/internal/geometry"
)

var (
	// ErrBundleConflict means a route key ended up in more than one merged bundle
	ErrBundleConflict = errors.New("route key assigned to more than one bundle")

	// ErrBundleIncomplete means a route key observed at the station is in no bundle
	ErrBundleIncomplete = errors.New("route key missing from bundles")
)

// StationBundles is the resolved bundle layout of a single station
type StationBundles struct {
	// Bundles are the merged, disjoint route key groups, each sorted
	Bundles [][]RouteKey

	// Directions maps every route key to its bundle's direction (0-3)
	Directions map[RouteKey]int

	// ByDirection lists the route keys assigned to each direction in offset order
	ByDirection [4][]RouteKey

	Rotate bool
	Width  float64
	Height float64
}

// ResolveBundles merges the neighbour groups of one station into direction bundles.
// groups maps a neighbouring station id to the route keys heading there, and
// observations maps a route key to the directions recorded at each pass through the station.
func ResolveBundles(groups map[string][]RouteKey, observations map[RouteKey][]int) (*StationBundles, error) {
	neighbors := make([]string, 0, len(groups))
	for neighbor := range groups {
		neighbors = append(neighbors, neighbor)
	}
	sort.Strings(neighbors)

	candidates := make([][]RouteKey, 0, len(neighbors))
	for _, neighbor := range neighbors {
		candidates = append(candidates, groups[neighbor])
	}

	bundles := mergeBundles(candidates)
	if err := validateBundles(bundles, observations); err != nil {
		return nil, err
	}

	return assignDirections(bundles, observations), nil
}

// FallbackBundles puts every key seen at the station into one bundle.
// Used when ResolveBundles rejects the station's data.
func FallbackBundles(groups map[string][]RouteKey, observations map[RouteKey][]int) *StationBundles {
	var all []RouteKey
	for _, keys := range groups {
		all = append(all, keys...)
	}
	for key := range observations {
		all = append(all, key)
	}
	return assignDirections([][]RouteKey{uniqueSorted(all)}, observations)
}

// Offset returns the direction of a key and its centred lateral index within that direction
func (b *StationBundles) Offset(key RouteKey) (direction int, offset float64, ok bool) {
	direction, ok = b.Directions[key]
	if !ok {
		return 0, 0, false
	}
	keys := b.ByDirection[direction]
	index := sort.Search(len(keys), func(i int) bool { return keys[i] >= key })
	if index == len(keys) || keys[index] != key {
		return 0, 0, false
	}
	return direction, float64(index) - float64(len(keys))/2 + 0.5, true
}

// mergeBundles unions candidate groups that share a key until all groups are disjoint.
// Each candidate absorbs every existing group it overlaps, so one pass gives the transitive closure.
func mergeBundles(candidates [][]RouteKey) [][]RouteKey {
	var merged [][]RouteKey

	for _, candidate := range candidates {
		current := uniqueSorted(candidate)
		if len(current) == 0 {
			continue
		}

		next := make([][]RouteKey, 0, len(merged)+1)
		for _, bundle := range merged {
			if overlaps(bundle, current) {
				current = uniqueSorted(append(current, bundle...))
			} else {
				next = append(next, bundle)
			}
		}
		merged = append(next, current)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i][0] < merged[j][0] })
	return merged
}

// validateBundles checks completeness against the observations. The conflict
// check is a guard on mergeBundles, whose output is disjoint, so ResolveBundles
// only fails with ErrBundleIncomplete in practice.
func validateBundles(bundles [][]RouteKey, observations map[RouteKey][]int) error {
	owner := make(map[RouteKey]int)
	for i, bundle := range bundles {
		for _, key := range bundle {
			if previous, ok := owner[key]; ok && previous != i {
				return fmt.Errorf("%w: %s in bundles %d and %d", ErrBundleConflict, key, previous, i)
			}
			owner[key] = i
		}
	}

	missing := make([]RouteKey, 0)
	for key := range observations {
		if _, ok := owner[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return fmt.Errorf("%w: %v", ErrBundleIncomplete, missing)
	}

	return nil
}

func assignDirections(bundles [][]RouteKey, observations map[RouteKey][]int) *StationBundles {
	result := &StationBundles{
		Bundles:    bundles,
		Directions: make(map[RouteKey]int),
	}

	for _, bundle := range bundles {
		var tally [4]int
		for _, key := range bundle {
			for _, direction := range observations[key] {
				tally[direction&3]++
			}
		}

		best := 0
		for direction := 1; direction < 4; direction++ {
			if tally[direction] > tally[best] {
				best = direction
			}
		}

		for _, key := range bundle {
			result.Directions[key] = best
			result.ByDirection[best] = append(result.ByDirection[best], key)
		}
	}

	var counts [4]int
	for direction := range result.ByDirection {
		keys := result.ByDirection[direction]
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		counts[direction] = len(keys)
	}

	result.Rotate, result.Width, result.Height = footprint(counts)
	return result
}

// footprint derives the station shape from the number of keys per direction
func footprint(counts [4]int) (rotate bool, width, height float64) {
	rotate = counts[1]+counts[3] > counts[0]+counts[2]

	span := func(primary, secondary int) float64 {
		straight := math.Max(0, float64(counts[primary]-1))
		diagonal := math.Max(0, float64(counts[secondary]-1)) * geometry.Sqrt1_2
		return math.Max(straight, diagonal)
	}

	if rotate {
		return true, span(1, 0), span(3, 2)
	}
	return false, span(0, 1), span(2, 3)
}

func overlaps(a, b []RouteKey) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

func uniqueSorted(keys []RouteKey) []RouteKey {
	out := make([]RouteKey, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	n := 0
	for i, key := range out {
		if i == 0 || key != out[n-1] {
			out[n] = key
			n++
		}
	}
	return out[:n]
}
