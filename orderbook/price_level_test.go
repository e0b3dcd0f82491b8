package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-exchange/domain"
)

func levelNode(id domain.OrderID, qty domain.Quantity) *orderNode {
	return &orderNode{Order: domain.NewOrder(id, domain.SideBuy, domain.OrderTypeLimit, px(100), qty, 0)}
}

func TestPriceLevelFIFO(t *testing.T) {
	l := newPriceLevel(px(100))
	assert.True(t, l.Empty())

	a := levelNode(1, 10)
	b := levelNode(2, 20)
	c := levelNode(3, 30)
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	assert.Equal(t, domain.Quantity(60), l.TotalQuantity())
	assert.Equal(t, 3, l.OrderCount())
	assert.Same(t, a, l.Front())

	assert.Same(t, a, l.PopFront())
	assert.Same(t, b, l.PopFront())
	assert.Same(t, c, l.PopFront())
	assert.Nil(t, l.PopFront())
	assert.True(t, l.Empty())
	assert.Zero(t, l.TotalQuantity())
}

func TestPriceLevelRemoveMiddle(t *testing.T) {
	l := newPriceLevel(px(100))
	a, b, c := levelNode(1, 10), levelNode(2, 20), levelNode(3, 30)
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.Remove(b)
	assert.Equal(t, domain.Quantity(40), l.TotalQuantity())
	assert.Equal(t, 2, l.OrderCount())
	assert.Nil(t, b.level)

	require.Same(t, a, l.Front())
	assert.Same(t, c, a.next)
	assert.Same(t, a, c.prev)
}

func TestPriceLevelRemoveEnds(t *testing.T) {
	l := newPriceLevel(px(100))
	a, b := levelNode(1, 10), levelNode(2, 20)
	l.PushBack(a)
	l.PushBack(b)

	l.Remove(a)
	assert.Same(t, b, l.Front())
	l.Remove(b)
	assert.True(t, l.Empty())
	assert.Equal(t, 0, l.OrderCount())
}

func TestPriceLevelReduceQuantity(t *testing.T) {
	l := newPriceLevel(px(100))
	a := levelNode(1, 10)
	l.PushBack(a)

	// The caller applies the fill to the node; the level only adjusts its
	// cached total.
	a.Order.Fill(4)
	l.ReduceQuantity(4)
	assert.Equal(t, domain.Quantity(6), l.TotalQuantity())
	assert.Equal(t, a.Order.Remaining(), l.TotalQuantity())
}
