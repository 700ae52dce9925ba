package repositories

// NextCursor returns the pagination cursor for the next page: the last id of
// the page if it was full, nil otherwise. A short page always means there is
// no more data.
func NextCursor(ids []uint, limit int) *uint {
	if len(ids) < limit || len(ids) == 0 {
		return nil
	}
	last := ids[len(ids)-1]
	return &last
}
