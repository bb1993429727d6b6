// internal/game/selector.go
package game

// Entry is one candidate of the weighted draw.
type Entry struct {
	ID         string
	Bet        int64
	Multiplier float64
}

// Weight is bet * multiplier, with a non-positive multiplier counted as 1.
func (e Entry) Weight() float64 {
	m := e.Multiplier
	if m <= 0 {
		m = 1
	}
	return float64(e.Bet) * m
}

// TotalWeight sums the positive weights of entries.
func TotalWeight(entries []Entry) float64 {
	var total float64
	for _, e := range entries {
		if w := e.Weight(); w > 0 {
			total += w
		}
	}
	return total
}

// Draw walks entries in order, subtracting each weight from r, and returns
// the first entry that brings r to zero or below. If floating point residue
// leaves r positive, the first entry with a positive weight wins.
// Reports false only when no entry has a positive weight.
func Draw(entries []Entry, r float64) (Entry, bool) {
	first := -1
	for i, e := range entries {
		w := e.Weight()
		if w <= 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		r -= w
		if r <= 0 {
			return e, true
		}
	}
	if first < 0 {
		return Entry{}, false
	}
	return entries[first], true
}

// Pick draws r uniformly from [0, total weight) and selects the winner.
func Pick(entries []Entry, src Source) (Entry, bool) {
	total := TotalWeight(entries)
	if total <= 0 {
		return Entry{}, false
	}
	return Draw(entries, src.Float64()*total)
}
