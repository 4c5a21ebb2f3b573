package domain

// Instrument is a tradable symbol with its current price in cents.
type Instrument struct {
	Symbol string
	Name   string
	Price  int64 // cents, always > 0
}
