package orders

import (
	"fmt"

	"github.com/rishav/order-matching-engine/internal/id"
)

// InstrumentLookup and AccountLookup are the narrow views Validate needs
// into the reference store, kept here rather than importing internal/refdata
// directly so that orders depends only on these two lookups.
type InstrumentLookup interface {
	HasInstrument(instrument id.Id) bool
}

type AccountLookup interface {
	HasAccount(account id.Id) bool
}

// Validate runs the structural pre-trade checks required before an order
// reaches the state machine: InvalidOrder, UnknownInstrument,
// UnknownAccount, NoMarketForMarketOrder. Position/volume/price-band checks
// are out of scope; no risk, credit, or position accounting is performed
// here.
func Validate(o *Order, instruments InstrumentLookup, accounts AccountLookup, bookHasLiquidity bool) error {
	if o.OrderQty.Sign() <= 0 {
		return fmt.Errorf("%w: orderQty must be positive, got %s", ErrInvalidOrder, o.OrderQty)
	}
	if o.OrdType == OrdTypeLimit || o.OrdType == OrdTypeStopLimit {
		if o.Price.Sign() <= 0 {
			return fmt.Errorf("%w: limit order requires a positive price", ErrInvalidOrder)
		}
	}
	if o.OrdType == OrdTypeStop || o.OrdType == OrdTypeStopLimit {
		if o.StopPx.Sign() <= 0 {
			return fmt.Errorf("%w: stop order requires a positive stopPx", ErrInvalidOrder)
		}
	}
	if !o.Instrument.Valid() || (instruments != nil && !instruments.HasInstrument(o.Instrument)) {
		return fmt.Errorf("%w: instrument %s", ErrUnknownInstrument, o.Instrument)
	}
	if accounts != nil && o.Account.Valid() && !accounts.HasAccount(o.Account) {
		return fmt.Errorf("%w: account %s", ErrUnknownAccount, o.Account)
	}
	if o.OrdType == OrdTypeMarket && !bookHasLiquidity {
		return fmt.Errorf("%w: no resting liquidity for market order on %s", ErrNoMarketForMarketOrder, o.Symbol)
	}
	return nil
}
