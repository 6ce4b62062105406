package session

import (
	"taskgen/internal/filter"
	"taskgen/internal/store"
)

// group is one product's slice of the collection plus its unsaved drafts.
type group struct {
	key    string
	drafts map[string]string
	table  *filter.Table
}

// buildGroups partitions c by product. Drafts start from the first row of each
// product, which is what every row of the group holds after a save.
// A single group covers every row of the task, rows with an empty product
// included.
func buildGroups(c *store.Collection, fields []string) []*group {
	products := c.Products()
	if len(products) == 0 {
		var first store.Row
		if c.Len() > 0 {
			first = c.Rows[0]
		}
		return []*group{newGroup("", first, fields)}
	}
	groups := make([]*group, 0, len(products))
	for _, p := range products {
		row, _ := c.First(store.ColumnProduct, p)
		groups = append(groups, newGroup(p, row, fields))
	}
	return groups
}

func newGroup(key string, row store.Row, fields []string) *group {
	g := &group{key: key, drafts: make(map[string]string, len(fields))}
	for _, f := range fields {
		g.drafts[f] = row[f]
	}
	g.table = filter.Parse(g.drafts[store.ColumnExtraFilter])
	return g
}
