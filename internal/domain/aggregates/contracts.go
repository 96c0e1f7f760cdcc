package aggregates

import "slices"

// Contract names an aggregate and the write operations it owns. Every owned
// operation opens and commits its own transaction; list and read-model
// queries stay on the table repos.
type Contract struct {
	Name       string
	Operations []string
	Notes      string
}

type Aggregate interface {
	Contract() Contract
}

// Owns reports whether op is one of the contract's write operations.
func (c Contract) Owns(op string) bool {
	return slices.Contains(c.Operations, op)
}
