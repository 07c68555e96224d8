// Package cart holds the product lines the current visitor intends to buy
// and derives their pricing. Every mutation is persisted before it becomes
// visible, so a failed write leaves the cart as it was.
package cart

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopflow/internal/errs"
	"github.com/iliyamo/shopflow/internal/model"
)

// Line pairs a product with a quantity in [1, Product.Stock].
type Line struct {
	Product  model.Product `json:"product"`
	Quantity int           `json:"quantity"`
}

func (l Line) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	repo Repository

	mu    sync.Mutex
	owner string
	lines []Line
}

func New(repo Repository) *Cart {
	return &Cart{repo: repo}
}

// Load replaces the in-memory cart with the stored snapshot. Lines with a
// non-positive quantity are dropped.
func (c *Cart) Load(ctx context.Context) error {
	snap, err := c.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("cart: load: %w", err)
	}
	lines := make([]Line, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		if l.Quantity >= 1 && l.Product.ID != "" {
			lines = append(lines, l)
		}
	}
	c.mu.Lock()
	c.owner = snap.Owner
	c.lines = lines
	c.mu.Unlock()
	return nil
}

// AddItem adds qty of p. An existing line grows to min(current+qty, stock);
// a new line starts at min(qty, stock).
func (c *Cart) AddItem(ctx context.Context, p model.Product, qty int) error {
	if qty < 1 {
		return errs.Validation("quantity", "Quantity must be at least 1.")
	}
	if !p.Purchasable() {
		return errs.Validation("product", fmt.Sprintf("%s is not available.", p.Name))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyLines()
	if i := indexOf(next, p.ID); i >= 0 {
		next[i].Product = p
		next[i].Quantity = clamp(next[i].Quantity+qty, p.Stock)
	} else {
		next = append(next, Line{Product: p, Quantity: clamp(qty, p.Stock)})
	}
	return c.commit(ctx, c.owner, next)
}

// UpdateQuantity sets the quantity of a line, clamped to [1, stock]. A
// quantity below 1 removes the line. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return c.RemoveItem(ctx, productID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyLines()
	i := indexOf(next, productID)
	if i < 0 {
		return nil
	}
	next[i].Quantity = clamp(qty, next[i].Product.Stock)
	return c.commit(ctx, c.owner, next)
}

func (c *Cart) RemoveItem(ctx context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOf(c.lines, productID)
	if i < 0 {
		return nil
	}
	next := c.copyLines()
	next = append(next[:i], next[i+1:]...)
	return c.commit(ctx, c.owner, next)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(ctx, c.owner, nil)
}

// Deduct takes ordered out of the cart after a checkout. Each line loses
// the ordered quantity and is dropped once nothing is left, so items
// added while the order was being placed stay in the cart.
func (c *Cart) Deduct(ctx context.Context, ordered []Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyLines()
	for _, o := range ordered {
		if i := indexOf(next, o.Product.ID); i >= 0 {
			next[i].Quantity -= o.Quantity
		}
	}
	kept := next[:0]
	for _, l := range next {
		if l.Quantity >= 1 {
			kept = append(kept, l)
		}
	}
	return c.commit(ctx, c.owner, kept)
}

// Bind attaches the cart to the user now logged in. A guest cart is
// adopted; a cart owned by another user is emptied. Logging out (owner "")
// keeps the lines.
func (c *Cart) Bind(ctx context.Context, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case owner == "" || owner == c.owner:
		return nil
	case c.owner == "":
		return c.commit(ctx, owner, c.lines)
	default:
		log.Printf("cart: discarding cart of a previous user")
		return c.commit(ctx, owner, nil)
	}
}

func (c *Cart) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLines()
}

func (c *Cart) Summary() Summary { return Summarize(c.Lines()) }

func (c *Cart) IsEmpty() bool { return c.ItemCount() == 0 }

func (c *Cart) ItemCount() int { return c.Summary().ItemCount }

func (c *Cart) Subtotal() decimal.Decimal { return c.Summary().Subtotal }

func (c *Cart) Shipping() decimal.Decimal { return c.Summary().Shipping }

func (c *Cart) Total() decimal.Decimal { return c.Summary().Total }

// commit persists the new state and only then installs it. Callers hold mu.
func (c *Cart) commit(ctx context.Context, owner string, lines []Line) error {
	if err := c.repo.Save(ctx, Snapshot{Owner: owner, Lines: lines}); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	c.owner = owner
	c.lines = lines
	return nil
}

func (c *Cart) copyLines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func indexOf(lines []Line, productID string) int {
	for i, l := range lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

func clamp(q, stock int) int {
	if q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}
