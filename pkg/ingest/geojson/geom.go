package geojson

// toPoint/toLine/toRings/toPolys unwrap the generic `any` nesting
// encoding/json produces for GeoJSON's polymorphic `coordinates`
// field: []interface{} of float64 at each level.

func toPoint(v any) ([2]float64, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) < 2 {
		return [2]float64{}, false
	}
	lon, ok1 := arr[0].(float64)
	lat, ok2 := arr[1].(float64)
	if !ok1 || !ok2 {
		return [2]float64{}, false
	}
	return [2]float64{lon, lat}, true
}

func toLine(v any) ([][2]float64, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([][2]float64, 0, len(arr))
	for _, item := range arr {
		p, ok := toPoint(item)
		if !ok {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

func toRings(v any) ([][][2]float64, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([][][2]float64, 0, len(arr))
	for _, item := range arr {
		line, ok := toLine(item)
		if !ok {
			return nil, false
		}
		out = append(out, line)
	}
	return out, true
}

func toPolys(v any) ([][][][2]float64, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([][][][2]float64, 0, len(arr))
	for _, item := range arr {
		rings, ok := toRings(item)
		if !ok {
			return nil, false
		}
		out = append(out, rings)
	}
	return out, true
}
