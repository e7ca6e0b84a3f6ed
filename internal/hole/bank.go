package hole

import "subgoal/internal/lang"

// Row is one concrete example: values aligned positionally with a problem's
// input variables.
type Row []lang.Value

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	return append(Row(nil), r...)
}

// ExampleBank holds concrete input rows split into passing and failing sets.
// Banks are immutable: filtering and mapping build new banks, and rows are
// never mutated in place.
type ExampleBank struct {
	Valid   []Row
	Invalid []Row
}

// NewBank copies the given rows into a fresh bank.
func NewBank(valid, invalid []Row) ExampleBank {
	return ExampleBank{
		Valid:   cloneRows(valid),
		Invalid: cloneRows(invalid),
	}
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// FilterIns keeps the rows whose inputs satisfy pred.
func (b ExampleBank) FilterIns(pred func(Row) bool) ExampleBank {
	filter := func(rows []Row) []Row {
		var out []Row
		for _, r := range rows {
			if pred(r) {
				out = append(out, r.Clone())
			}
		}
		return out
	}
	return ExampleBank{Valid: filter(b.Valid), Invalid: filter(b.Invalid)}
}

// MapIns replaces each row r with the possibly-empty list f(r). Returning an
// empty list drops the row; this is how rows whose auxiliary evaluation fails
// fall out of a child bank.
func (b ExampleBank) MapIns(f func(Row) []Row) ExampleBank {
	apply := func(rows []Row) []Row {
		var out []Row
		for _, r := range rows {
			out = append(out, f(r.Clone())...)
		}
		return out
	}
	return ExampleBank{Valid: apply(b.Valid), Invalid: apply(b.Invalid)}
}

// Size reports the total number of rows.
func (b ExampleBank) Size() int {
	return len(b.Valid) + len(b.Invalid)
}
