package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/atinyakov/HomeKeeper/internal/models"
	"github.com/atinyakov/HomeKeeper/internal/relay"
)

// defaultRelayTimeout bounds a relay round trip when ctx has no deadline.
const defaultRelayTimeout = 15 * time.Second

// RelayLog speaks the relay frame protocol over a websocket. Every call
// opens its own connection and closes it before returning.
type RelayLog struct {
	url    string
	dialer *websocket.Dialer
}

// NewRelayLog returns a Log for the relay at url. A nil dialer means
// websocket.DefaultDialer.
func NewRelayLog(url string, dialer *websocket.Dialer) *RelayLog {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &RelayLog{url: url, dialer: dialer}
}

// dial connects and returns the connection with a release func that must be
// called when the exchange is over.
func (r *RelayLog) dial(ctx context.Context) (*websocket.Conn, func(), error) {
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", r.url, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultRelayTimeout)
	}
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	// unblock pending reads if ctx is cancelled before the deadline
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	return conn, func() {
		stop()
		conn.Close()
	}, nil
}

func writeFrame(conn *websocket.Conn, f relay.Frame) error {
	b, err := relay.Encode(f)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func readFrame(conn *websocket.Conn) (relay.Frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return relay.Frame{}, err
	}
	return relay.Decode(data)
}

// Query implements Log with a REQ subscription that ends at EOSE.
func (r *RelayLog) Query(ctx context.Context, filter models.Filter) ([]models.Record, error) {
	conn, release, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	subID := uuid.NewString()
	if err := writeFrame(conn, relay.Req(subID, filter)); err != nil {
		return nil, fmt.Errorf("send REQ: %w", err)
	}

	var records []models.Record
	for {
		f, err := readFrame(conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read: %w", err)
		}
		switch f.Type {
		case relay.TypeEvent:
			if f.SubID == subID && f.Record != nil && filter.Matches(*f.Record) {
				records = append(records, *f.Record)
			}
		case relay.TypeEOSE:
			if f.SubID == subID {
				_ = writeFrame(conn, relay.Frame{Type: relay.TypeClose, SubID: subID})
				return newestFirst(records, filter.Limit), nil
			}
		case relay.TypeNotice:
			return nil, fmt.Errorf("relay notice: %s", f.Message)
		}
	}
}

// Publish implements Log with an EVENT frame acknowledged by OK.
func (r *RelayLog) Publish(ctx context.Context, rec models.Record) error {
	conn, release, err := r.dial(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := writeFrame(conn, relay.Publish(rec)); err != nil {
		return fmt.Errorf("send EVENT: %w", err)
	}
	for {
		f, err := readFrame(conn)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		switch f.Type {
		case relay.TypeOK:
			if f.RecordID != rec.ID {
				continue
			}
			if !f.OK {
				return fmt.Errorf("%w: %s", ErrRejected, f.Message)
			}
			return nil
		case relay.TypeNotice:
			return fmt.Errorf("relay notice: %s", f.Message)
		}
	}
}
