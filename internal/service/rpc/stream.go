package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"LendPulse/internal/domain/models"
	domrepo "LendPulse/internal/domain/repository"
)

// Stream implements UpdateStream over the node's websocket subscription
// endpoint: one programSubscribe covering every account of the lending
// program, fanned out as AccountUpdate events.
type Stream struct {
	websocketURL   string
	program        string
	commitment     domrepo.Commitment
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

func NewStream(websocketURL, program string, commitment domrepo.Commitment, reconnectDelay, pingInterval time.Duration) domrepo.UpdateStream {
	return &Stream{
		websocketURL:   websocketURL,
		program:        program,
		commitment:     commitment,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the websocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("node ws connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	return nil
}

// Subscribe registers the program subscription.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("node ws not connected")
	}
	msg := rpcRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "programSubscribe",
		Params: []interface{}{
			s.program,
			map[string]interface{}{"encoding": "base64", "commitment": string(s.commitment)},
		},
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe program %s: %w", s.program, err)
	}
	return nil
}

type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context rpcContext `json:"context"`
			Value   struct {
				Pubkey  string       `json:"pubkey"`
				Account accountValue `json:"account"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Read streams AccountUpdate events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.AccountUpdate, <-chan error) {
	updates := make(chan *models.AccountUpdate, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(updates)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("node ws conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("node ws read: %w", err)
					return
				}
				var n wsNotification
				if err := json.Unmarshal(b, &n); err != nil {
					// ignore non-notification frames
					continue
				}
				if n.Method != "programNotification" {
					continue
				}
				u := &models.AccountUpdate{
					Address:    n.Params.Result.Value.Pubkey,
					Slot:       n.Params.Result.Context.Slot,
					Kind:       kindLabel(n.Params.Result.Value.Account.Data),
					ObservedAt: time.Now().UTC(),
				}
				select {
				case updates <- u:
				default:
					// drop on backpressure; the periodic scan catches up
				}
			}
		}
	}()

	return updates, errs
}

// Reconnect re-dials and re-subscribes after the configured delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) IsConnected() bool { return s.connected }

func kindLabel(data []string) string {
	if len(data) == 0 {
		return "unknown"
	}
	b, err := base64.StdEncoding.DecodeString(data[0])
	if err != nil {
		return "unknown"
	}
	switch k, _ := AccountKind(b); k {
	case AccountKindReserve:
		return "reserve"
	case AccountKindObligation:
		return "obligation"
	default:
		return "unknown"
	}
}
