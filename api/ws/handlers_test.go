package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"fenrir/domain/book"
	"fenrir/engine"
)

func newTestServer(t *testing.T) (*Server, uint64) {
	t.Helper()
	eng := engine.New(engine.Options{})
	pair, err := eng.CreatePair(engine.PairParams{
		BaseToken:  "WOLF",
		QuoteToken: "USD",
		TreeWidth:  4,
		PriceTick:  book.PriceScale,
	})
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewServer(eng, log), pair
}

func TestFundPoolRejectsBadFunder(t *testing.T) {
	s, pair := newTestServer(t)

	// Names with separators would corrupt the store's balance keys.
	for _, funder := range []string{"", "a/b"} {
		raw := json.RawMessage(fmt.Sprintf(`{"pair":%d,"funder":%q,"base":"1","quote":"1"}`, pair, funder))
		if _, err := s.handleFundPool(raw); !errors.Is(err, errBadAmount) {
			t.Errorf("funder %q: %v, want errBadAmount", funder, err)
		}
	}
}

func TestSetDecimalsRoundTrip(t *testing.T) {
	s, pair := newTestServer(t)

	msg := &Message{
		Type: MsgSetDecimals,
		ID:   7,
		Data: json.RawMessage(fmt.Sprintf(`{"pair":%d,"base_decimals":8,"quote_decimals":6}`, pair)),
	}
	resp := s.dispatch(msg)
	if resp.Type != MsgSetDecimals+"_resp" || resp.ID != 7 {
		t.Fatalf("envelope = %+v", resp)
	}
	data, ok := resp.Data.(SetDecimalsResponse)
	if !ok {
		t.Fatalf("data has type %T", resp.Data)
	}
	if data.BaseDecimals != 8 || data.QuoteDecimals != 6 {
		t.Errorf("decimals = %d/%d, want 8/6", data.BaseDecimals, data.QuoteDecimals)
	}
}
