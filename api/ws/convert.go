package ws

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"fenrir/domain/book"
)

var errBadAmount = errors.New("ws: malformed amount")

// parseAmount scales a decimal token amount string to the token's
// integer representation. Fractions below one integer unit are
// rejected rather than silently rounded.
func parseAmount(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(errBadAmount, "%q", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, errors.Wrapf(errBadAmount, "%q has more than %d decimals", s, decimals)
	}
	return scaled.BigInt(), nil
}

// formatAmount renders an integer token amount as a decimal string.
func formatAmount(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// parsePrice scales a quote-per-base price string by the book's
// fixed-point price scale.
func parsePrice(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(errBadAmount, "%q", s)
	}
	scaled := d.Shift(18)
	if !scaled.IsInteger() {
		return nil, errors.Wrapf(errBadAmount, "price %q below tick resolution", s)
	}
	return scaled.BigInt(), nil
}

func parseSide(s string) (isBuy bool, err error) {
	switch strings.ToLower(s) {
	case "buy":
		return true, nil
	case "sell":
		return false, nil
	default:
		return false, errors.Wrapf(errBadAmount, "side %q", s)
	}
}

func sideOf(s string) (book.Side, error) {
	isBuy, err := parseSide(s)
	if err != nil {
		return 0, err
	}
	return book.SideOf(isBuy), nil
}

// validName rejects identifiers that would break composite store
// keys.
func validName(s string) bool {
	return s != "" && !strings.ContainsRune(s, '/')
}

func orderPayload(o *book.Order, p *book.Pair) OrderPayload {
	side := "sell"
	if o.IsBuy {
		side = "buy"
	}
	return OrderPayload{
		ID:     o.ID,
		Pair:   o.Pair,
		Owner:  o.Owner,
		Side:   side,
		Price:  o.Price,
		Status: o.Status.String(),

		PlacedBase:  formatAmount(o.PlacedBase, p.BaseDecimals),
		PlacedQuote: formatAmount(o.PlacedQuote, p.QuoteDecimals),

		ClaimedBase:    formatAmount(o.ClaimedBase, p.BaseDecimals),
		ClaimedQuote:   formatAmount(o.ClaimedQuote, p.QuoteDecimals),
		CancelledBase:  formatAmount(o.CancelledBase, p.BaseDecimals),
		CancelledQuote: formatAmount(o.CancelledQuote, p.QuoteDecimals),

		CreatedAt: o.CreatedAt,
		UserRef:   o.UserRef,
	}
}
