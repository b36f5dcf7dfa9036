package cart

import (
	"errors"
	"sync"

	"mesa/pkg/models"
)

var (
	ErrNotPurchasable    = errors.New("item is not purchasable")
	ErrInsufficientStock = errors.New("not enough stock for item")
	ErrLineNotFound      = errors.New("cart line not found")
)

// Line is one quantity-bearing entry in a cart. Name and price are snapshots
// taken when the item is first added.
type Line struct {
	MenuItemID int64   `json:"menu_item_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// Cart merges repeated selections of the same menu item into a single line.
// It lives in memory for the duration of a client session and is never
// persisted. A session is driven by one operator, but its requests may be
// handled concurrently, so every method locks.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// AddItem inserts a new line at quantity 1, or increments the existing line
// for the same item. The increment is rejected when the resulting quantity
// would exceed the item's live stock count; the cart is left unchanged.
func (c *Cart) AddItem(item *models.MenuItem) error {
	if !item.Purchasable() {
		return ErrNotPurchasable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID == item.ID {
			if c.lines[i].Quantity+1 > item.StockCount {
				return ErrInsufficientStock
			}
			c.lines[i].Quantity++
			return nil
		}
	}

	c.lines = append(c.lines, Line{
		MenuItemID: item.ID,
		Name:       item.Name,
		Price:      item.Price,
		Quantity:   1,
	})
	return nil
}

func (c *Cart) Increase(menuItemID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID == menuItemID {
			c.lines[i].Quantity++
			return nil
		}
	}
	return ErrLineNotFound
}

// Decrease lowers a line's quantity by one, removing the line entirely when
// it was at quantity 1. The cart never holds a zero-quantity line.
func (c *Cart) Decrease(menuItemID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MenuItemID == menuItemID {
			if c.lines[i].Quantity <= 1 {
				c.lines = append(c.lines[:i], c.lines[i+1:]...)
			} else {
				c.lines[i].Quantity--
			}
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) TotalAmount() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0.0
	for _, l := range c.lines {
		total += l.Price * float64(l.Quantity)
	}
	return total
}

func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, l := range c.lines {
		count += l.Quantity
	}
	return count
}

// Store holds the active carts of the POS service keyed by client-chosen
// cart id. The store lock covers only the map; each cart carries its own
// lock for line mutations.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// Get returns the cart for the given id, creating it on first use.
func (s *Store) Get(id string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[id]
	if !ok {
		c = New()
		s.carts[id] = c
	}
	return c
}

// Drop removes a cart from the store, releasing the session.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, id)
}
