package ws

import "encoding/json"

// Message is the request envelope. ID is echoed back so clients can
// correlate responses over one connection.
type Message struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the reply envelope.
type Response struct {
	Type string      `json:"type"`
	ID   uint64      `json:"id,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// ErrorPayload is the data of an "error" response.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Request types.
const (
	MsgCreatePair     = "create_pair"
	MsgSetDecimals    = "set_decimals"
	MsgDeposit        = "deposit"
	MsgWithdraw       = "withdraw"
	MsgFundPool       = "fund_pool"
	MsgPlaceLimit     = "place_limit"
	MsgPlaceMarket    = "place_market"
	MsgClaim          = "claim"
	MsgCancel         = "cancel"
	MsgGetOrder       = "get_order"
	MsgListOrders     = "list_orders"
	MsgAmountsAtPrice = "amounts_at_price"
	MsgPriceNode      = "price_node"
	MsgClaimable      = "claimable"
	MsgBalance        = "balance"
	MsgPool           = "pool"
)

// All amounts cross the wire as human-readable decimal strings in
// token units; the handlers scale them by the pair's token decimals.

type CreatePairRequest struct {
	BaseToken  string `json:"base_token"`
	QuoteToken string `json:"quote_token"`
	TreeWidth  uint8  `json:"tree_width"`
	// PriceTick is the price of row 1, quote per base.
	PriceTick  string `json:"price_tick"`
	PoolFeePPM uint32 `json:"pool_fee_ppm"`
}

type CreatePairResponse struct {
	Pair uint64 `json:"pair"`
}

type SetDecimalsRequest struct {
	Pair          uint64 `json:"pair"`
	BaseDecimals  uint8  `json:"base_decimals"`
	QuoteDecimals uint8  `json:"quote_decimals"`
}

type SetDecimalsResponse struct {
	Pair          uint64 `json:"pair"`
	BaseDecimals  uint8  `json:"base_decimals"`
	QuoteDecimals uint8  `json:"quote_decimals"`
}

type BalanceRequest struct {
	Owner string `json:"owner"`
	Token string `json:"token"`
}

type BalanceResponse struct {
	Owner   string `json:"owner"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

type MoveBalanceRequest struct {
	Pair   uint64 `json:"pair"`
	Owner  string `json:"owner"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type FundPoolRequest struct {
	Pair   uint64 `json:"pair"`
	Funder string `json:"funder"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
}

type TradeRequest struct {
	Pair  uint64 `json:"pair"`
	Owner string `json:"owner"`
	Side  string `json:"side"` // "buy" or "sell"
	// Amount is quote for buys, base for sells.
	Amount string `json:"amount"`
	// PriceRow is the limit row; 0 on market orders means "any price".
	PriceRow uint32 `json:"price_row"`
	UserRef  uint64 `json:"user_ref,omitempty"`
}

type TradeResponse struct {
	Order     uint64 `json:"order,omitempty"`
	BookBase  string `json:"book_base"`
	BookQuote string `json:"book_quote"`
	AmmIn     string `json:"amm_in"`
	AmmOut    string `json:"amm_out"`
	Fee       string `json:"fee"`
	Remaining string `json:"remaining"`
	Height    uint64 `json:"height"`
}

type OrderRequest struct {
	Pair  uint64 `json:"pair"`
	Order uint64 `json:"order"`
}

type ListOrdersRequest struct {
	Pair  uint64 `json:"pair"`
	Owner string `json:"owner"`
	Page  int    `json:"page"`
}

type OrderPayload struct {
	ID     uint64 `json:"id"`
	Pair   uint64 `json:"pair"`
	Owner  string `json:"owner"`
	Side   string `json:"side"`
	Price  uint32 `json:"price_row"`
	Status string `json:"status"`

	PlacedBase  string `json:"placed_base"`
	PlacedQuote string `json:"placed_quote"`

	ClaimedBase    string `json:"claimed_base"`
	ClaimedQuote   string `json:"claimed_quote"`
	CancelledBase  string `json:"cancelled_base"`
	CancelledQuote string `json:"cancelled_quote"`

	CreatedAt int64  `json:"created_at"`
	UserRef   uint64 `json:"user_ref,omitempty"`
}

type ListOrdersResponse struct {
	Orders []OrderPayload `json:"orders"`
}

type AmountsRequest struct {
	Pair uint64 `json:"pair"`
	Side string `json:"side"`
	Row  uint32 `json:"row"`
}

type AmountsResponse struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

type PriceNodeRequest struct {
	Pair   uint64 `json:"pair"`
	Side   string `json:"side"`
	Column uint8  `json:"column"`
	Row    uint32 `json:"row"`
}

type PriceNodeResponse struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
	Gen   uint64 `json:"gen"`
}

type ClaimResponse struct {
	Base            string `json:"base"`
	Quote           string `json:"quote"`
	VirtuallyFilled bool   `json:"virtually_filled"`
}

type CancelResponse struct {
	Claim       ClaimResponse `json:"claim"`
	CancelBase  string        `json:"cancel_base"`
	CancelQuote string        `json:"cancel_quote"`
}

type PoolRequest struct {
	Pair uint64 `json:"pair"`
}

type PoolResponse struct {
	BaseReserve  string `json:"base_reserve"`
	QuoteReserve string `json:"quote_reserve"`
	FeePPM       uint32 `json:"fee_ppm"`
}
