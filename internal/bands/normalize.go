package bands

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
)

// payloadShape is the closed set of accepted top-level payload revisions.
type payloadShape int

const (
	shapeUnknown   payloadShape = iota
	shapeBands                  // {"bands": {<band key>: [...]}, "center": {...}}
	shapeResultMap              // {"results": {<band key>: [...]}}
	shapeFlat                   // {"results": [...]} or [...]
)

func (s payloadShape) String() string {
	switch s {
	case shapeBands:
		return "bands"
	case shapeResultMap:
		return "result_map"
	case shapeFlat:
		return "flat"
	}
	return "unknown"
}

// payload is a top-level document resolved to exactly one shape.
type payload struct {
	shape  payloadShape
	bands  map[string]json.RawMessage
	items  []json.RawMessage
	center *geo.Point
}

// detectShape resolves the top-level document once. Shapes are tried in
// priority order: bands, result map, flat list.
func detectShape(raw []byte) payload {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return payload{shape: shapeUnknown}
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return payload{shape: shapeUnknown}
		}
		return payload{shape: shapeFlat, items: items}
	case '{':
	default:
		return payload{shape: shapeUnknown}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return payload{shape: shapeUnknown}
	}
	center := resolveCenter(top)

	if m, ok := bandMap(top["bands"]); ok {
		return payload{shape: shapeBands, bands: m, center: center}
	}

	results := bytes.TrimSpace(top["results"])
	if m, ok := bandMap(results); ok {
		return payload{shape: shapeResultMap, bands: m, center: center}
	}
	if len(results) > 0 && results[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(results, &items); err == nil {
			return payload{shape: shapeFlat, items: items, center: center}
		}
	}

	return payload{shape: shapeUnknown, center: center}
}

// bandMap decodes raw as an object and reports whether it carries at least one band key.
func bandMap(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	for k := range m {
		if isKey(k) {
			return m, true
		}
	}
	return nil, false
}

// Normalize converts a raw search payload into bands. It never fails: an
// unrecognized payload yields four empty bands and no center.
func Normalize(raw []byte) Result {
	p := detectShape(raw)
	res := Result{Bands: NewBandSet(), Center: p.center}

	switch p.shape {
	case shapeBands, shapeResultMap:
		for _, k := range order {
			bays, dropped := decodeBand(p.bands[string(k)])
			if len(bays) > 0 {
				*res.Bands.slot(k) = bays
			}
			res.Dropped += dropped
		}
	case shapeFlat:
		for _, item := range p.items {
			bay, ok := extractBay(item)
			if !ok {
				res.Dropped++
				continue
			}
			k, ok := Classify(bay.DistanceMeters)
			if !ok {
				res.Dropped++
				continue
			}
			res.Bands.add(k, bay)
		}
		for _, k := range order {
			bays := res.Bands.Get(k)
			sort.SliceStable(bays, func(i, j int) bool {
				return bays[i].DistanceMeters < bays[j].DistanceMeters
			})
		}
	}

	return res
}

// NormalizeValue marshals v and normalizes the result. Values that cannot be
// marshaled are treated like any other unrecognized payload.
func NormalizeValue(v any) Result {
	raw, err := json.Marshal(v)
	if err != nil {
		return Result{Bands: NewBandSet()}
	}
	return Normalize(raw)
}

// decodeBand decodes an already-bucketed band. Order is kept as given; entries
// that are not canonical bays are dropped.
func decodeBand(raw json.RawMessage) ([]Bay, int) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0
	}
	bays := make([]Bay, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		bay, ok := decodeCanonicalBay(entry)
		if !ok {
			dropped++
			continue
		}
		bays = append(bays, bay)
	}
	return bays, dropped
}

// decodeCanonicalBay reads a bay already in normalized form. Distance and
// coordinates must be JSON numbers; the optional fields are read leniently so
// an odd value in one of them never loses the bay.
func decodeCanonicalBay(raw json.RawMessage) (Bay, bool) {
	obj := asObject(raw)
	if obj == nil {
		return Bay{}, false
	}
	distance, ok := asNumber(obj["distanceMeters"])
	if !ok || distance < 0 {
		return Bay{}, false
	}
	lat, ok := asNumber(obj["lat"])
	if !ok {
		return Bay{}, false
	}
	lon, ok := asNumber(obj["lon"])
	if !ok {
		return Bay{}, false
	}

	return Bay{
		DistanceMeters:    distance,
		Lat:               lat,
		Lon:               lon,
		Name:              textField(obj["name"]),
		AvailableSpaces:   firstCount(obj, "availableSpaces"),
		TotalSpaces:       firstCount(obj, "totalSpaces"),
		ID:                textField(obj["id"]),
		StatusDescription: textField(obj["statusDescription"]),
		StatusTimestamp:   textField(obj["statusTimestamp"]),

		ZoneNumber:         passThrough(obj, "zoneNumber"),
		Street:             passThrough(obj, "street"),
		MaxStayLabel:       passThrough(obj, "maxStayLabel"),
		MaxStayMinutes:     passThrough(obj, "maxStayMinutes"),
		Metered:            passThrough(obj, "metered"),
		Price:              passThrough(obj, "price"),
		Address:            passThrough(obj, "address"),
		SegmentDescription: passThrough(obj, "segmentDescription"),
	}, true
}

// textField reads a canonical text field as given, empty strings included.
// Numbers keep their written form; other values are treated as absent.
func textField(raw json.RawMessage) *string {
	if s, ok := asString(raw); ok {
		return &s
	}
	if _, ok := asNumber(raw); ok {
		s := string(bytes.TrimSpace(raw))
		return &s
	}
	return nil
}

// resolveCenter reads "center", falling back to the legacy "query" echo.
func resolveCenter(top map[string]json.RawMessage) *geo.Point {
	for _, key := range []string{"center", "query"} {
		obj := asObject(top[key])
		if obj == nil {
			continue
		}
		if p, ok := pointFrom(obj); ok {
			return &p
		}
	}
	return nil
}
