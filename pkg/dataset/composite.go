package dataset

import (
	"errors"
	"fmt"
)

// Composite concatenates two datasets: indices [0, first.Len()) go to the
// first, the rest to the second.
type Composite struct {
	first  Dataset
	second Dataset
}

// NewComposite combines two open datasets. The composite owns them; Close
// closes both.
func NewComposite(first, second Dataset) *Composite {
	return &Composite{first: first, second: second}
}

// OpenComposite opens the stores at both paths with the same options.
func OpenComposite(path1, path2 string, opts Options) (*Composite, error) {
	first, err := Open(path1, opts)
	if err != nil {
		return nil, err
	}
	second, err := Open(path2, opts)
	if err != nil {
		first.Close()
		return nil, err
	}
	return NewComposite(first, second), nil
}

func (c *Composite) Len() int {
	return c.first.Len() + c.second.Len()
}

// SetEpoch sets the epoch of both datasets.
func (c *Composite) SetEpoch(epoch int) {
	c.first.SetEpoch(epoch)
	c.second.SetEpoch(epoch)
}

func (c *Composite) Epoch() int {
	return c.first.Epoch()
}

// Get serves index from whichever dataset holds it. Item.Index is reported
// in composite coordinates.
func (c *Composite) Get(index int) (Item, error) {
	n := c.Len()
	if index < 0 || index >= n {
		return Item{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, n)
	}

	offset := c.first.Len()
	if index < offset {
		return c.first.Get(index)
	}

	item, err := c.second.Get(index - offset)
	if err != nil {
		return Item{}, err
	}
	item.Index += offset
	return item, nil
}

func (c *Composite) Close() error {
	return errors.Join(c.first.Close(), c.second.Close())
}
