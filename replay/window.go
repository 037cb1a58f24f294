package replay

import (
	"github.com/nomis52/demoseed/bos"
)

// Offset is a calendar offset. Months are applied first and clamp to the
// end of the target month.
type Offset struct {
	Months int
	Days   int
}

// Apply returns d shifted by the offset.
func (o Offset) Apply(d bos.Date) bos.Date {
	return d.AddMonths(o.Months).AddDays(o.Days)
}

// Window is a range of dates around a reference date, visited in random
// steps of MinStep to MaxStep days.
type Window struct {
	From    Offset
	To      Offset
	MinStep int
	MaxStep int
}

// Daily returns a window visited day by day.
func Daily(from, to Offset) Window {
	return Window{From: from, To: to, MinStep: 1, MaxStep: 1}
}

// Dates returns the visited dates in increasing order. The first date is
// the start of the window; no date is after its end.
func (w Window) Dates(today bos.Date, r *Rand) []bos.Date {
	lo := max(w.MinStep, 1)
	hi := max(w.MaxStep, lo)
	end := w.To.Apply(today)
	var dates []bos.Date
	for d := w.From.Apply(today); !d.After(end); d = d.AddDays(r.Between(lo, hi)) {
		dates = append(dates, d)
	}
	return dates
}
