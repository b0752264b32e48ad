package quant

// despeckle reassigns small isolated non-background regions to the
// background index. Photographic grain survives quantization as stray
// single-pixel inks; a page's real content forms larger connected
// regions, so a flood fill over the 4-neighborhood separates the two.
//
// minSize is the smallest component (in pixels) that is kept. The scan
// order is row-major, so the pass is deterministic.
func despeckle(index []uint8, w, h, minSize int) {
	visited := make([]bool, len(index))
	queue := make([]int, 0, 256)
	component := make([]int, 0, 256)

	for start := range index {
		if visited[start] || index[start] == 0 {
			continue
		}

		// Collect the 4-connected component of non-background pixels
		// containing start.
		queue = append(queue[:0], start)
		component = append(component[:0], start)
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := cur%w, cur/w

			for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if visited[ni] || index[ni] == 0 {
					continue
				}
				visited[ni] = true
				queue = append(queue, ni)
				component = append(component, ni)
			}
		}

		if len(component) < minSize {
			for _, i := range component {
				index[i] = 0
			}
		}
	}
}
