package report

import (
	"strings"
)

// Type discriminates the two persisted report flavours.
type Type string

const (
	TypePerformance Type = "performance"
	TypeContest     Type = "contest"
)

func ParseType(raw string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypePerformance:
		return TypePerformance, true
	case TypeContest:
		return TypeContest, true
	default:
		return "", false
	}
}

// Key identifies one physical report file. Department and Year accept the
// literal "All" to mean the unfiltered cohort.
type Key struct {
	Department string
	Year       string
	Type       Type
}

func (k Key) Normalize() Key {
	department := strings.TrimSpace(k.Department)
	if department == "" {
		department = "All"
	}
	year := strings.TrimSpace(k.Year)
	if year == "" {
		year = "All"
	}
	return Key{Department: department, Year: year, Type: k.Type}
}

// Sheet is one named tab of a report file: a fixed header row plus ordered
// data rows. Cells are strings; numeric formatting is a presentation concern.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// DateColumn locates the date-partition column of a performance sheet, -1
// when the sheet carries none.
func (s Sheet) DateColumn() int {
	for idx, name := range s.Header {
		if strings.EqualFold(strings.TrimSpace(name), "Date") {
			return idx
		}
	}
	return -1
}

func (s Sheet) Clone() Sheet {
	out := Sheet{
		Name:   s.Name,
		Header: append([]string(nil), s.Header...),
		Rows:   make([][]string, 0, len(s.Rows)),
	}
	for _, row := range s.Rows {
		out.Rows = append(out.Rows, append([]string(nil), row...))
	}
	return out
}
