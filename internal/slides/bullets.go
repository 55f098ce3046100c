package slides

import (
	"math"
	"sort"
)

// Bullet detection constants. Like the rest of this package these are
// calibrated heuristics, not guarantees.
const (
	bulletMinRadius  = 2
	bulletMaxRadius  = 15
	houghMinVotes    = 18
	houghMinDistance = 20

	minBulletArea   = 10
	maxBulletArea   = 100
	minBulletAspect = 0.5
	maxBulletAspect = 2.0

	minCircleCount = 2 // more than this many circles => bullets
	minSquareCount = 3 // more than this many small squares => bullets
)

// hasBulletPatterns reports whether the frame shows a bullet-list layout:
// either a circular-Hough pass finds several small circles, or contour
// analysis finds several small, roughly-square shapes.
func hasBulletPatterns(m *edgeMap) bool {
	if countCircles(m) > minCircleCount {
		return true
	}
	return countSmallSquares(m) > minSquareCount
}

// countCircles runs a gradient-direction Hough vote for circle centers in
// the bullet radius range and counts well-separated peaks.
func countCircles(m *edgeMap) int {
	acc := make([]int, m.w*m.h)

	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			i := y*m.w + x
			if !m.edges[i] {
				continue
			}
			mag := math.Hypot(m.gradX[i], m.gradY[i])
			if mag == 0 {
				continue
			}
			dx := m.gradX[i] / mag
			dy := m.gradY[i] / mag

			// The center lies along the gradient direction; vote both
			// ways since polarity depends on bullet vs background shade.
			for r := bulletMinRadius; r <= bulletMaxRadius; r++ {
				for _, sign := range [2]float64{1, -1} {
					cx := x + int(math.Round(sign*float64(r)*dx))
					cy := y + int(math.Round(sign*float64(r)*dy))
					if cx >= 0 && cx < m.w && cy >= 0 && cy < m.h {
						acc[cy*m.w+cx]++
					}
				}
			}
		}
	}

	type peak struct{ x, y, votes int }
	var peaks []peak
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if v := acc[y*m.w+x]; v >= houghMinVotes {
				peaks = append(peaks, peak{x, y, v})
			}
		}
	}

	// Deterministic non-maximum suppression: strongest peaks first, ties
	// broken by position.
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].votes != peaks[j].votes {
			return peaks[i].votes > peaks[j].votes
		}
		if peaks[i].y != peaks[j].y {
			return peaks[i].y < peaks[j].y
		}
		return peaks[i].x < peaks[j].x
	})

	var kept []peak
	for _, p := range peaks {
		ok := true
		for _, k := range kept {
			if math.Hypot(float64(p.x-k.x), float64(p.y-k.y)) < houghMinDistance {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, p)
		}
	}
	return len(kept)
}

// countSmallSquares counts connected edge components whose area and
// bounding-box aspect ratio fit a square bullet glyph.
func countSmallSquares(m *edgeMap) int {
	visited := make([]bool, m.w*m.h)
	count := 0

	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			start := y*m.w + x
			if visited[start] || !m.edges[start] {
				continue
			}

			// Flood fill one 4-connected component.
			area := 0
			minX, minY, maxX, maxY := x, y, x, y
			stack := []int{start}
			visited[start] = true
			for len(stack) > 0 {
				i := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area++

				ix, iy := i%m.w, i/m.w
				if ix < minX {
					minX = ix
				}
				if ix > maxX {
					maxX = ix
				}
				if iy < minY {
					minY = iy
				}
				if iy > maxY {
					maxY = iy
				}

				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := ix+d[0], iy+d[1]
					if nx < 0 || nx >= m.w || ny < 0 || ny >= m.h {
						continue
					}
					ni := ny*m.w + nx
					if !visited[ni] && m.edges[ni] {
						visited[ni] = true
						stack = append(stack, ni)
					}
				}
			}

			if area <= minBulletArea || area >= maxBulletArea {
				continue
			}
			w := maxX - minX + 1
			h := maxY - minY + 1
			if h == 0 {
				continue
			}
			aspect := float64(w) / float64(h)
			if aspect > minBulletAspect && aspect < maxBulletAspect {
				count++
			}
		}
	}
	return count
}
