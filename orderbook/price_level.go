package orderbook

import "pulse-exchange/domain"

// PriceLevel is the FIFO queue of orders resting at one price. The list is
// intrusive (links live on the nodes), so add, remove and pop are O(1)
// with no allocation. Head is the earliest arrival — time priority within
// a level is position in this list.
//
// totalQuantity and orderCount are cached aggregates; they always equal
// the sums over the linked nodes.
type PriceLevel struct {
	price         domain.Price
	head          *orderNode
	tail          *orderNode
	totalQuantity domain.Quantity
	orderCount    int
}

func newPriceLevel(price domain.Price) *PriceLevel {
	return &PriceLevel{price: price}
}

// Price returns the level's price.
func (l *PriceLevel) Price() domain.Price { return l.price }

// TotalQuantity returns the cached sum of remaining quantity.
func (l *PriceLevel) TotalQuantity() domain.Quantity { return l.totalQuantity }

// OrderCount returns the number of resting orders.
func (l *PriceLevel) OrderCount() int { return l.orderCount }

// Empty reports whether the level holds no orders.
func (l *PriceLevel) Empty() bool { return l.head == nil }

// Front returns the earliest resting order, or nil.
func (l *PriceLevel) Front() *orderNode { return l.head }

// PushBack appends a node at the tail (lowest time priority).
func (l *PriceLevel) PushBack(n *orderNode) {
	n.level = l
	n.next = nil
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.totalQuantity += n.Order.Remaining()
	l.orderCount++
}

// Remove unlinks n from anywhere in the list.
func (l *PriceLevel) Remove(n *orderNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.level = nil, nil, nil
	l.totalQuantity -= n.Order.Remaining()
	l.orderCount--
}

// PopFront unlinks and returns the head, or nil if empty.
func (l *PriceLevel) PopFront() *orderNode {
	n := l.head
	if n != nil {
		l.Remove(n)
	}
	return n
}

// ReduceQuantity decrements the cached total after a fill. The caller has
// already applied the fill to the node; the list itself is untouched.
func (l *PriceLevel) ReduceQuantity(qty domain.Quantity) {
	l.totalQuantity -= qty
}
