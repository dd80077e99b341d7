// Package bands normalizes "nearby parking" payloads into four fixed distance
// bands. It is a pure package: no I/O, no logging, no shared state.
package bands

import (
	"encoding/json"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
)

// Key names one distance band.
type Key string

const (
	Within100m     Key = "within_100m"
	From100To200m  Key = "100_to_200m"
	From200To500m  Key = "200_to_500m"
	From500To1000m Key = "500_to_1000m"
)

// MaxDistanceMeters is the inclusive upper bound of the outermost band.
const MaxDistanceMeters = 1000

var order = [...]Key{Within100m, From100To200m, From200To500m, From500To1000m}

// Keys returns the band keys in display order.
func Keys() []Key {
	keys := order
	return keys[:]
}

// UpperBound returns the inclusive upper bound of k in meters.
func (k Key) UpperBound() float64 {
	switch k {
	case Within100m:
		return 100
	case From100To200m:
		return 200
	case From200To500m:
		return 500
	case From500To1000m:
		return MaxDistanceMeters
	}
	return 0
}

// Classify returns the first band whose upper bound distance does not exceed.
// ok is false for distances beyond MaxDistanceMeters.
func Classify(distance float64) (Key, bool) {
	for _, k := range order {
		if distance <= k.UpperBound() {
			return k, true
		}
	}
	return "", false
}

func isKey(s string) bool {
	for _, k := range order {
		if string(k) == s {
			return true
		}
	}
	return false
}

// Status values derived from space counts, in the sensor feed's vocabulary.
const (
	StatusUnoccupied = "Unoccupied"
	StatusOccupied   = "Present"
)

// Bay is one normalized parking result.
//
// Pass-through fields keep the upstream JSON verbatim so numbers, strings and
// booleans survive untouched; a nil RawMessage encodes as null.
type Bay struct {
	DistanceMeters    float64 `json:"distanceMeters"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Name              *string `json:"name"`
	AvailableSpaces   *int    `json:"availableSpaces"`
	TotalSpaces       *int    `json:"totalSpaces"`
	ID                *string `json:"id"`
	StatusDescription *string `json:"statusDescription"`
	StatusTimestamp   *string `json:"statusTimestamp"`

	ZoneNumber         json.RawMessage `json:"zoneNumber"`
	Street             json.RawMessage `json:"street"`
	MaxStayLabel       json.RawMessage `json:"maxStayLabel"`
	MaxStayMinutes     json.RawMessage `json:"maxStayMinutes"`
	Metered            json.RawMessage `json:"metered"`
	Price              json.RawMessage `json:"price"`
	Address            json.RawMessage `json:"address"`
	SegmentDescription json.RawMessage `json:"segmentDescription"`
}

// BandSet maps each band to its bays, ascending by distance.
type BandSet struct {
	Within100m     []Bay `json:"within_100m"`
	From100To200m  []Bay `json:"100_to_200m"`
	From200To500m  []Bay `json:"200_to_500m"`
	From500To1000m []Bay `json:"500_to_1000m"`
}

// NewBandSet returns a BandSet with all four bands empty but non-nil.
func NewBandSet() BandSet {
	return BandSet{
		Within100m:     []Bay{},
		From100To200m:  []Bay{},
		From200To500m:  []Bay{},
		From500To1000m: []Bay{},
	}
}

// Get returns the bays in band k.
func (s BandSet) Get(k Key) []Bay {
	if p := s.slot(k); p != nil {
		return *p
	}
	return nil
}

// Len returns the number of bays across all bands.
func (s BandSet) Len() int {
	return len(s.Within100m) + len(s.From100To200m) + len(s.From200To500m) + len(s.From500To1000m)
}

func (s *BandSet) slot(k Key) *[]Bay {
	switch k {
	case Within100m:
		return &s.Within100m
	case From100To200m:
		return &s.From100To200m
	case From200To500m:
		return &s.From200To500m
	case From500To1000m:
		return &s.From500To1000m
	}
	return nil
}

func (s *BandSet) add(k Key, bay Bay) {
	if p := s.slot(k); p != nil {
		*p = append(*p, bay)
	}
}

// MarshalJSON always emits the four keys in band order, with [] for empty bands.
func (s BandSet) MarshalJSON() ([]byte, error) {
	type ordered BandSet
	out := ordered(s)
	for _, k := range order {
		if p := (*BandSet)(&out).slot(k); *p == nil {
			*p = []Bay{}
		}
	}
	return json.Marshal(out)
}

// Result is the output of Normalize.
type Result struct {
	Bands  BandSet    `json:"bands"`
	Center *geo.Point `json:"center"`

	// Dropped counts flat items excluded for bad data or distance > 1000 m.
	Dropped int `json:"-"`
}
