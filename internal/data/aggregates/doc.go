// Package aggregates implements the exchange write model.
//
// Writes compose the table repos from internal/data/repos inside a single
// transaction owned by the aggregate, so a status change and the
// notifications it emits commit or roll back together.
package aggregates
