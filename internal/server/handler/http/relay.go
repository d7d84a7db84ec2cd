package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/middleware"
	"github.com/atinyakov/HomeKeeper/internal/relay"
)

// maxFrameSize bounds a single inbound relay frame.
const maxFrameSize = 1 << 20

// RelayHandler serves the relay frame protocol on a websocket. Stored
// records are answered on REQ followed by EOSE. Subscriptions are not kept
// open after EOSE, so CLOSE is accepted and ignored.
type RelayHandler struct {
	Log      LogService
	Logger   *zap.Logger
	Upgrader websocket.Upgrader
}

// ServeHTTP upgrades the connection and serves frames until the peer
// disconnects.
func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.OrNop(h.Logger)
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	ctx := r.Context()
	caller := middleware.AuthorFromContext(ctx)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("relay connection closed", zap.Error(err))
			}
			return
		}

		f, err := relay.Decode(data)
		if err != nil {
			if err := send(conn, relay.Frame{Type: relay.TypeNotice, Message: err.Error()}); err != nil {
				return
			}
			continue
		}

		var replies []relay.Frame
		switch f.Type {
		case relay.TypeEvent:
			if f.Record == nil || f.SubID != "" {
				replies = append(replies, relay.Frame{Type: relay.TypeNotice, Message: "EVENT from client must not carry a subscription id"})
				break
			}
			ok, msg := true, ""
			created, err := h.Log.Append(ctx, caller, *f.Record)
			switch {
			case err != nil && appendStatus(err) == http.StatusInternalServerError:
				log.Error("append failed", zap.String("id", f.Record.ID), zap.Error(err))
				ok, msg = false, "error: internal error"
			case err != nil:
				ok, msg = false, "invalid: "+err.Error()
			case !created:
				msg = "duplicate: already have this record"
			}
			replies = append(replies, relay.Frame{Type: relay.TypeOK, RecordID: f.Record.ID, OK: ok, Message: msg})
		case relay.TypeReq:
			records, err := h.Log.Query(ctx, *f.Filter)
			if err != nil {
				log.Error("query failed", zap.Error(err))
				replies = append(replies, relay.Frame{Type: relay.TypeNotice, Message: "error: query failed"})
				break
			}
			for _, rec := range records {
				replies = append(replies, relay.Deliver(f.SubID, rec))
			}
			replies = append(replies, relay.Frame{Type: relay.TypeEOSE, SubID: f.SubID})
		case relay.TypeClose:
		default:
			replies = append(replies, relay.Frame{Type: relay.TypeNotice, Message: "unsupported frame " + string(f.Type)})
		}

		for _, reply := range replies {
			if err := send(conn, reply); err != nil {
				log.Debug("relay write failed", zap.Error(err))
				return
			}
		}
	}
}

func send(conn *websocket.Conn, f relay.Frame) error {
	b, err := relay.Encode(f)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
