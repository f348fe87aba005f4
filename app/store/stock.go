package store

import "CamuPos/app/models"

// stockLedger applies order snapshots to a private copy of the catalog and
// remembers which products it touched, in first-touch order.
type stockLedger struct {
	products []models.Product
	touched  []models.FlexID
	seen     map[models.FlexID]bool
}

func newStockLedger(products []models.Product) *stockLedger {
	return &stockLedger{
		products: cloneProducts(products),
		seen:     make(map[models.FlexID]bool),
	}
}

// restore adds each line's qty back to its base product. Lines without a
// positive qty never move stock.
func (l *stockLedger) restore(items models.Items) {
	for _, line := range items {
		if line.Qty <= 0 {
			continue
		}
		i := productIndex(l.products, line.Key.BaseProductID())
		if i < 0 {
			continue
		}
		l.products[i].Stock += line.Qty
		l.touch(l.products[i].ID)
	}
}

// consume subtracts each line's qty from its base product, floored at 0
func (l *stockLedger) consume(items models.Items) {
	for _, line := range items {
		if line.Qty <= 0 {
			continue
		}
		i := productIndex(l.products, line.Key.BaseProductID())
		if i < 0 {
			continue
		}
		stock := l.products[i].Stock - line.Qty
		if stock < 0 {
			stock = 0
		}
		l.products[i].Stock = stock
		l.touch(l.products[i].ID)
	}
}

func (l *stockLedger) touch(id models.FlexID) {
	if !l.seen[id] {
		l.seen[id] = true
		l.touched = append(l.touched, id)
	}
}

// intents returns one upsert per touched product carrying its final stock
func (l *stockLedger) intents() []Intent {
	out := make([]Intent, 0, len(l.touched))
	for _, id := range l.touched {
		if i := productIndex(l.products, id); i >= 0 {
			out = append(out, UpsertProductIntent{Product: l.products[i]})
		}
	}
	return out
}
