package query

import "github.com/calvinalkan/taskboard/internal/record"

// ApplyRowOrder places records named in order first, in that order, then the
// remaining records in their original relative order. Ids in order that no
// longer exist are skipped. Records sharing an id stay together at that id's
// position, so every record is emitted exactly once.
func ApplyRowOrder(records []record.Record, order []string) []record.Record {
	if len(order) == 0 {
		return append([]record.Record(nil), records...)
	}

	byID := make(map[string][]int, len(records))
	for i, r := range records {
		byID[r.ID()] = append(byID[r.ID()], i)
	}

	out := make([]record.Record, 0, len(records))
	placed := make([]bool, len(records))

	for _, id := range order {
		for _, i := range byID[id] {
			if placed[i] {
				continue
			}

			out = append(out, records[i])
			placed[i] = true
		}
	}

	for i, r := range records {
		if !placed[i] {
			out = append(out, r)
		}
	}

	return out
}
