package report

import (
	"regexp"
	"strconv"
)

// Resource is one row of a utilization table.
type Resource struct {
	Used      float64 `json:"used"`
	Available float64 `json:"available"`
	Percent   float64 `json:"percent"`
}

// Utilization holds the headline resource rows of a utilization report.
// A resource absent from the report stays nil.
type Utilization struct {
	LUT        *Resource `json:"lut,omitempty"`
	FF         *Resource `json:"ff,omitempty"`
	BRAM       *Resource `json:"bram,omitempty"`
	DSP        *Resource `json:"dsp,omitempty"`
	IO         *Resource `json:"io,omitempty"`
	Incomplete bool      `json:"parse_incomplete"`
	Raw        string    `json:"raw,omitempty"`
}

// resourceRow matches a pipe-table row. Row labels vary by device family,
// so each row accepts alternates. Between Used and Available the table
// carries one middle column (Fixed) or two (Fixed, Prohibited) depending on
// the report generation; the skip group absorbs either.
type resourceRow struct {
	re     *regexp.Regexp
	assign func(*Utilization, *Resource)
}

const rowTail = `\s*\|\s*([\d.]+)\s*\|\s*(?:[\d.]+\s*\|\s*){1,2}([\d.]+)\s*\|\s*([\d.]+)`

var utilizationRows = []resourceRow{
	{regexp.MustCompile(`(?i)(?:Slice LUTs|CLB LUTs)` + rowTail),
		func(u *Utilization, r *Resource) { u.LUT = r }},
	{regexp.MustCompile(`(?i)(?:Slice Registers|CLB Registers)` + rowTail),
		func(u *Utilization, r *Resource) { u.FF = r }},
	{regexp.MustCompile(`(?i)Block RAM Tile` + rowTail),
		func(u *Utilization, r *Resource) { u.BRAM = r }},
	{regexp.MustCompile(`(?i)DSPs?` + rowTail),
		func(u *Utilization, r *Resource) { u.DSP = r }},
	{regexp.MustCompile(`(?i)(?:Bonded IOB|Bonded User I/O)` + rowTail),
		func(u *Utilization, r *Resource) { u.IO = r }},
}

// ParseUtilization extracts the headline resource rows from a utilization
// report table.
func ParseUtilization(raw string) Utilization {
	u := Utilization{Raw: raw}

	for _, row := range utilizationRows {
		m := row.re.FindStringSubmatch(raw)
		if m == nil {
			u.Incomplete = true
			continue
		}
		used, err1 := strconv.ParseFloat(m[1], 64)
		avail, err2 := strconv.ParseFloat(m[2], 64)
		pct, err3 := strconv.ParseFloat(m[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			u.Incomplete = true
			continue
		}
		row.assign(&u, &Resource{Used: used, Available: avail, Percent: pct})
	}

	return u
}
