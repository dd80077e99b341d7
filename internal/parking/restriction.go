package parking

import (
	"regexp"
	"strconv"
	"strings"
)

// Restriction is a parsed sign plate display such as "2P MTR".
type Restriction struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes,omitempty"`
	Metered bool   `json:"metered"`
}

var (
	fractionHours = regexp.MustCompile(`^(\d+)/(\d+)P$`)
	wholeHours    = regexp.MustCompile(`^(?:MP)?(\d+)P$`)
	minutesToken  = regexp.MustCompile(`^(?:(?:LZ|P)(\d+)M?|(\d+)M(?:IN|INS)?)$`)
)

// ParseRestriction reads the maximum stay and meter flag from a sign plate
// display. Minutes is zero when no duration is recognized.
func ParseRestriction(display string) Restriction {
	r := Restriction{Label: strings.TrimSpace(display)}
	for _, tok := range strings.Fields(strings.ToUpper(display)) {
		if tok == "MTR" || tok == "METER" || strings.HasPrefix(tok, "MP") {
			r.Metered = true
		}
		if r.Minutes == 0 {
			r.Minutes = tokenMinutes(tok)
		}
	}
	return r
}

func tokenMinutes(tok string) int {
	if m := fractionHours.FindStringSubmatch(tok); m != nil {
		num, _ := strconv.Atoi(m[1])
		den, _ := strconv.Atoi(m[2])
		if den == 0 {
			return 0
		}
		return num * 60 / den
	}
	if m := wholeHours.FindStringSubmatch(tok); m != nil {
		h, _ := strconv.Atoi(m[1])
		return h * 60
	}
	if m := minutesToken.FindStringSubmatch(tok); m != nil {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
