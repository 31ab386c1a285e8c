package dataset

// ColumnProfile holds per-column counts reported back after an upload.
type ColumnProfile struct {
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	NonMissing    int    `json:"non_missing"`
	Missing       int    `json:"missing"`
	DistinctCount int    `json:"distinct_count"`
}

// Profile summarizes every column in file order.
func (d *Dataset) Profile() []ColumnProfile {
	out := make([]ColumnProfile, len(d.headers))
	for i, name := range d.headers {
		distinct := make(map[string]struct{})
		p := ColumnProfile{Name: name, Kind: d.kinds[i]}
		for _, row := range d.rows {
			if IsMissing(row[i]) {
				p.Missing++
				continue
			}
			p.NonMissing++
			distinct[row[i]] = struct{}{}
		}
		p.DistinctCount = len(distinct)
		out[i] = p
	}
	return out
}
