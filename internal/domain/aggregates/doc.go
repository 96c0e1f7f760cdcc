// Package aggregates declares the exchange write contract and the error codes
// its implementations return. Nothing here knows about gorm or HTTP.
package aggregates
