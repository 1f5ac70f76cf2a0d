package model

// Page is an offset window expressed as from/size. The page index is
// from/size, so from is rounded down to a multiple of size.
type Page struct {
	From int
	Size int
}

func (p Page) Index() int {
	if p.Size <= 0 {
		return 0
	}
	return p.From / p.Size
}

func (p Page) Skip() int64 {
	return int64(p.Index() * p.Size)
}

func (p Page) Limit() int64 {
	return int64(p.Size)
}

// Slice applies the page to an in-memory result set.
func Slice[T any](all []T, p Page) []T {
	skip := int(p.Skip())
	if skip >= len(all) {
		return []T{}
	}
	end := skip + p.Size
	if p.Size <= 0 || end > len(all) {
		end = len(all)
	}
	return all[skip:end]
}
