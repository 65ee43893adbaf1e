package db

// copyFromRows implements pgx.CopyFromSource over pre-built value rows.
type copyFromRows struct {
	rows  [][]interface{}
	index int
}

func (b *copyFromRows) Next() bool {
	b.index++
	return b.index <= len(b.rows)
}

func (b *copyFromRows) Values() ([]interface{}, error) {
	return b.rows[b.index-1], nil
}

func (b *copyFromRows) Err() error {
	return nil
}
