package orderbook

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"pulse-exchange/domain"
)

// ladder is one side of the book: an ordered map from price to level.
// The red-black tree comparator is chosen per side so that the leftmost
// node is always the best price (highest bid, lowest ask) and in-order
// iteration walks levels in matching priority order. The best level is
// additionally cached as a direct pointer, so the hot path reads it
// without a tree descent.
type ladder struct {
	tree   *rbt.Tree[domain.Price, *PriceLevel]
	best   *PriceLevel
	better func(a, b domain.Price) bool
}

func newLadder(side domain.Side) *ladder {
	if side == domain.SideBuy {
		return &ladder{
			tree: rbt.NewWith[domain.Price, *PriceLevel](func(a, b domain.Price) int {
				// Bids iterate descending: higher price sorts first.
				switch {
				case a > b:
					return -1
				case a < b:
					return 1
				}
				return 0
			}),
			better: func(a, b domain.Price) bool { return a > b },
		}
	}
	return &ladder{
		tree: rbt.NewWith[domain.Price, *PriceLevel](func(a, b domain.Price) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}),
		better: func(a, b domain.Price) bool { return a < b },
	}
}

func (ld *ladder) empty() bool { return ld.best == nil }

func (ld *ladder) len() int { return ld.tree.Size() }

// bestLevel returns the level at the best price, or nil when the side is
// empty.
func (ld *ladder) bestLevel() *PriceLevel { return ld.best }

func (ld *ladder) get(price domain.Price) (*PriceLevel, bool) {
	return ld.tree.Get(price)
}

// getOrCreate returns the level for price, inserting an empty one if
// absent.
func (ld *ladder) getOrCreate(price domain.Price) *PriceLevel {
	if level, ok := ld.tree.Get(price); ok {
		return level
	}
	level := newPriceLevel(price)
	ld.tree.Put(price, level)
	if ld.best == nil || ld.better(price, ld.best.price) {
		ld.best = level
	}
	return level
}

// removeLevel erases the (empty) level at price and refreshes the cached
// best pointer.
func (ld *ladder) removeLevel(price domain.Price) {
	ld.tree.Remove(price)
	if ld.best != nil && ld.best.price == price {
		if node := ld.tree.Left(); node != nil {
			ld.best = node.Value
		} else {
			ld.best = nil
		}
	}
}

// levels returns up to max aggregate levels in priority order.
func (ld *ladder) levels(max int) []domain.BookLevel {
	if ld.tree.Empty() {
		return nil
	}
	out := make([]domain.BookLevel, 0, max)
	it := ld.tree.Iterator()
	for it.Next() && len(out) < max {
		level := it.Value()
		out = append(out, domain.BookLevel{
			Price:      level.price,
			Quantity:   level.totalQuantity,
			OrderCount: level.orderCount,
		})
	}
	return out
}

// totalQuantity sums the cached level totals across the whole side.
func (ld *ladder) totalQuantity() domain.Quantity {
	var sum domain.Quantity
	it := ld.tree.Iterator()
	for it.Next() {
		sum += it.Value().totalQuantity
	}
	return sum
}
