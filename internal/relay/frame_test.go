package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

func TestEncodeDecode(t *testing.T) {
	rec := models.Record{ID: "r1", Author: "alice", Namespace: models.Namespace, Content: "{}", CreatedAt: 10}
	filter := models.Filter{Authors: []string{"alice"}, Limit: 1}

	cases := []struct {
		name string
		in   Frame
		wire string
	}{
		{"publish", Publish(rec), `["EVENT",{"id":"r1","author":"alice","namespace":"homekeeper/preferences","tags":null,"content":"{}","createdAt":10}]`},
		{"deliver", Deliver("s1", rec), `["EVENT","s1",{"id":"r1","author":"alice","namespace":"homekeeper/preferences","tags":null,"content":"{}","createdAt":10}]`},
		{"req", Req("s1", filter), `["REQ","s1",{"authors":["alice"],"limit":1}]`},
		{"close", Frame{Type: TypeClose, SubID: "s1"}, `["CLOSE","s1"]`},
		{"eose", Frame{Type: TypeEOSE, SubID: "s1"}, `["EOSE","s1"]`},
		{"ok", Frame{Type: TypeOK, RecordID: "r1", OK: true, Message: ""}, `["OK","r1",true,""]`},
		{"notice", Frame{Type: TypeNotice, Message: "hi"}, `["NOTICE","hi"]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Encode(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.wire, string(b))

			out, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, tc.in, out)
		})
	}
}

func TestEncode_Invalid(t *testing.T) {
	for _, f := range []Frame{
		{Type: TypeEvent},
		{Type: TypeReq, SubID: "s"},
		{Type: "PING"},
	} {
		_, err := Encode(f)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, in := range []string{
		``,
		`{}`,
		`[]`,
		`[1]`,
		`["EVENT"]`,
		`["REQ","s1"]`,
		`["OK","r1","yes",""]`,
		`["EVENT","s1","not a record"]`,
		`["WHAT","x"]`,
	} {
		_, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedFrame, in)
	}
}
