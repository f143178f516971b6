package domain

type CartLine struct {
	ProductID ProductID
	Qty       int
}

// A Cart is the server-owned list of lines.
//
// Version holds the entity tag reported by the backend, empty when the
// backend does not version carts.
type Cart struct {
	Lines   []CartLine
	Version string
}

func (c Cart) TotalCount() (n int) {
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ApplyDelta returns the lines that result from adding delta to the line of
// productID. Quantities never drop below zero and zero lines are removed. An
// absent line is appended only for a positive delta.
func (c Cart) ApplyDelta(productID ProductID, delta int) []CartLine {
	lines := make([]CartLine, 0, len(c.Lines)+1)
	found := false
	for _, l := range c.Lines {
		if l.ProductID == productID {
			found = true
			l.Qty = max(0, l.Qty+delta)
		}
		lines = append(lines, l)
	}
	if !found && delta > 0 {
		lines = append(lines, CartLine{ProductID: productID, Qty: delta})
	}
	return NonEmptyLines(lines)
}

// NonEmptyLines drops lines with a non-positive quantity.
func NonEmptyLines(lines []CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Qty > 0 {
			out = append(out, l)
		}
	}
	return out
}

type Order struct {
	ID string
}
