package domain

import "strconv"

// DeriveOptionKey produces the local key standing in for an option's
// identity: the option's own identifier when present, otherwise its
// zero-based position within the question. Positional keys are only
// meaningful against the exact fetched list they were derived from; a
// fresh fetch may reorder options and invalidate them.
func DeriveOptionKey(opt Option, index int) string {
	if !opt.ID.IsZero() {
		return opt.ID.String()
	}
	return strconv.Itoa(index)
}
