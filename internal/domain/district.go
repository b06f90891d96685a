package domain

import (
	"fmt"
	"strings"
)

// District is one of the seven Bavarian administrative regions
// (Regierungsbezirke) an exam takes place in.
type District string

const (
	Oberbayern    District = "Oberbayern"
	Niederbayern  District = "Niederbayern"
	Schwaben      District = "Schwaben"
	Oberpfalz     District = "Oberpfalz"
	Unterfranken  District = "Unterfranken"
	Mittelfranken District = "Mittelfranken"
	Oberfranken   District = "Oberfranken"
)

// Districts lists every valid district in a fixed order.
var Districts = []District{
	Oberbayern,
	Niederbayern,
	Schwaben,
	Oberpfalz,
	Unterfranken,
	Mittelfranken,
	Oberfranken,
}

// ParseDistrict maps a district name to its District value.
// Matching ignores surrounding whitespace and letter case.
func ParseDistrict(s string) (District, error) {
	name := strings.TrimSpace(s)
	for _, d := range Districts {
		if strings.EqualFold(name, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDistrict, s)
}

// ParseDistrictList splits a comma or semicolon separated list of district
// names. Unknown names are returned separately so callers can warn about them
// without dropping the valid ones. Duplicates are removed, order is kept.
func ParseDistrictList(s string) (districts []District, unknown []string) {
	seen := make(map[District]bool)
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := ParseDistrict(part)
		if err != nil {
			unknown = append(unknown, part)
			continue
		}
		if !seen[d] {
			seen[d] = true
			districts = append(districts, d)
		}
	}
	return districts, unknown
}

// JoinDistricts renders districts as a ", " separated list.
func JoinDistricts(ds []District) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}
