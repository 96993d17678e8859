// Package ws exposes the engine over a websocket JSON protocol: one
// request envelope in, one response envelope out, amounts as decimal
// strings. Connections are independent; each runs its own
// read-dispatch-write loop.
package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fenrir/domain/amm"
	"fenrir/domain/book"
	"fenrir/engine"
)

type Server struct {
	engine   *engine.Engine
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func NewServer(eng *engine.Engine, logger *logrus.Logger) *Server {
	return &Server{
		engine: eng,
		log:    logger.WithField("component", "ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler serving the websocket endpoint at
// /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.log.WithField("addr", addr).Info("listening")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = conn.WriteJSON(errorResponse(0, "malformed message", http.StatusBadRequest))
			continue
		}
		if err := conn.WriteJSON(s.dispatch(&msg)); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(msg *Message) Response {
	data, err := s.handle(msg)
	if err != nil {
		return errorResponse(msg.ID, err.Error(), errCode(err))
	}
	return Response{Type: msg.Type + "_resp", ID: msg.ID, Data: data}
}

func (s *Server) handle(msg *Message) (interface{}, error) {
	switch msg.Type {
	case MsgCreatePair:
		return s.handleCreatePair(msg.Data)
	case MsgSetDecimals:
		return s.handleSetDecimals(msg.Data)
	case MsgDeposit:
		return s.handleMoveBalance(msg.Data, true)
	case MsgWithdraw:
		return s.handleMoveBalance(msg.Data, false)
	case MsgFundPool:
		return s.handleFundPool(msg.Data)
	case MsgPlaceLimit:
		return s.handleTrade(msg.Data, true)
	case MsgPlaceMarket:
		return s.handleTrade(msg.Data, false)
	case MsgClaim:
		return s.handleClaim(msg.Data)
	case MsgCancel:
		return s.handleCancel(msg.Data)
	case MsgGetOrder:
		return s.handleGetOrder(msg.Data)
	case MsgListOrders:
		return s.handleListOrders(msg.Data)
	case MsgAmountsAtPrice:
		return s.handleAmounts(msg.Data)
	case MsgPriceNode:
		return s.handlePriceNode(msg.Data)
	case MsgClaimable:
		return s.handleClaimable(msg.Data)
	case MsgBalance:
		return s.handleBalance(msg.Data)
	case MsgPool:
		return s.handlePool(msg.Data)
	default:
		return nil, errors.Wrapf(errBadAmount, "unknown message type %q", msg.Type)
	}
}

func errorResponse(id uint64, message string, code int) Response {
	return Response{Type: "error", ID: id, Data: ErrorPayload{Message: message, Code: code}}
}

func errCode(err error) int {
	switch {
	case errors.Is(err, book.ErrPairNotFound), errors.Is(err, book.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, book.ErrInvalidAmount),
		errors.Is(err, book.ErrInvalidPrice),
		errors.Is(err, engine.ErrUnknownToken),
		errors.Is(err, amm.ErrTargetUnreachable),
		errors.Is(err, errBadAmount):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, book.ErrOrderCancelled),
		errors.Is(err, book.ErrDecimalsLocked),
		errors.Is(err, engine.ErrTradingPaused),
		errors.Is(err, engine.ErrManagementPaused):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
