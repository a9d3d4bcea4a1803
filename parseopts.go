package linecalc

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type trailopt bool

// parsectx holds general data for parsing.
type parsectx struct {
	// names is the set of variable names that have been seen this parse.
	names map[string]bool
	// trailing indicates that input after a complete expression is left
	// unread instead of being rejected.
	trailing bool
}

// IgnoreTrailing tells the parser to stop at the end of the first complete
// expression without looking at the rest of the input. By default, anything
// other than whitespace after the expression is an error. For example, "5 5"
// evaluates to 5 with IgnoreTrailing and is a *TokenError without it.
func IgnoreTrailing() ParseOption {
	return trailopt(true)
}

// RejectTrailing undoes the effect of any earlier IgnoreTrailing.
func RejectTrailing() ParseOption {
	return trailopt(false)
}

func (o trailopt) parseOption(p parsectx) parsectx {
	p.trailing = bool(o)
	return p
}
