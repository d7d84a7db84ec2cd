// Package relay defines the JSON-array frames exchanged with a relay over a
// websocket connection.
//
// Client to relay:
//
//	["EVENT", <record>]            publish a record
//	["REQ", <subID>, <filter>]     query stored records
//	["CLOSE", <subID>]             end a subscription
//
// Relay to client:
//
//	["EVENT", <subID>, <record>]   a matching record
//	["EOSE", <subID>]              end of stored records
//	["OK", <recordID>, <bool>, <message>]
//	["NOTICE", <message>]
package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

// FrameType is the first element of every frame.
type FrameType string

const (
	TypeEvent  FrameType = "EVENT"
	TypeReq    FrameType = "REQ"
	TypeClose  FrameType = "CLOSE"
	TypeEOSE   FrameType = "EOSE"
	TypeOK     FrameType = "OK"
	TypeNotice FrameType = "NOTICE"
)

// ErrMalformedFrame is returned by Decode for anything it cannot parse.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is the decoded form of any frame. Only the fields relevant to Type
// are set.
type Frame struct {
	Type     FrameType
	SubID    string
	Record   *models.Record
	Filter   *models.Filter
	RecordID string
	OK       bool
	Message  string
}

// Publish builds a client EVENT frame.
func Publish(rec models.Record) Frame {
	return Frame{Type: TypeEvent, Record: &rec}
}

// Req builds a REQ frame.
func Req(subID string, filter models.Filter) Frame {
	return Frame{Type: TypeReq, SubID: subID, Filter: &filter}
}

// Deliver builds a relay EVENT frame for a subscription.
func Deliver(subID string, rec models.Record) Frame {
	return Frame{Type: TypeEvent, SubID: subID, Record: &rec}
}

// Encode serializes f as a JSON array.
func Encode(f Frame) ([]byte, error) {
	var parts []any
	switch f.Type {
	case TypeEvent:
		if f.Record == nil {
			return nil, fmt.Errorf("%w: EVENT without record", ErrMalformedFrame)
		}
		if f.SubID == "" {
			parts = []any{f.Type, f.Record}
		} else {
			parts = []any{f.Type, f.SubID, f.Record}
		}
	case TypeReq:
		if f.Filter == nil {
			return nil, fmt.Errorf("%w: REQ without filter", ErrMalformedFrame)
		}
		parts = []any{f.Type, f.SubID, f.Filter}
	case TypeClose, TypeEOSE:
		parts = []any{f.Type, f.SubID}
	case TypeOK:
		parts = []any{f.Type, f.RecordID, f.OK, f.Message}
	case TypeNotice:
		parts = []any{f.Type, f.Message}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, f.Type)
	}
	return json.Marshal(parts)
}

// Decode parses a JSON-array frame.
func Decode(data []byte) (Frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) == 0 {
		return Frame{}, ErrMalformedFrame
	}
	var typ FrameType
	if err := json.Unmarshal(parts[0], &typ); err != nil {
		return Frame{}, ErrMalformedFrame
	}

	f := Frame{Type: typ}
	var err error
	switch {
	case typ == TypeEvent && len(parts) == 2:
		f.Record = &models.Record{}
		err = json.Unmarshal(parts[1], f.Record)
	case typ == TypeEvent && len(parts) == 3:
		f.Record = &models.Record{}
		err = errors.Join(
			json.Unmarshal(parts[1], &f.SubID),
			json.Unmarshal(parts[2], f.Record),
		)
	case typ == TypeReq && len(parts) == 3:
		f.Filter = &models.Filter{}
		err = errors.Join(
			json.Unmarshal(parts[1], &f.SubID),
			json.Unmarshal(parts[2], f.Filter),
		)
	case (typ == TypeClose || typ == TypeEOSE) && len(parts) == 2:
		err = json.Unmarshal(parts[1], &f.SubID)
	case typ == TypeOK && len(parts) == 4:
		err = errors.Join(
			json.Unmarshal(parts[1], &f.RecordID),
			json.Unmarshal(parts[2], &f.OK),
			json.Unmarshal(parts[3], &f.Message),
		)
	case typ == TypeNotice && len(parts) == 2:
		err = json.Unmarshal(parts[1], &f.Message)
	default:
		return Frame{}, fmt.Errorf("%w: %s with %d elements", ErrMalformedFrame, typ, len(parts))
	}
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return f, nil
}
