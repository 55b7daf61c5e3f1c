package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// maxEventNesting bounds decoding of damaged or hostile capture files.
// Real events nest three levels deep.
const maxEventNesting = 16

// eventCodec holds the CBOR modes shared by writers and readers of
// capture files.
type eventCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var codec = mustCodec()

func mustCodec() eventCodec {
	c, err := newCodec()
	if err != nil {
		panic(fmt.Sprintf("log: building event codec: %v", err))
	}
	return c
}

func newCodec() (eventCodec, error) {
	// Canonical key order keeps identical events byte-identical, and
	// RFC3339Nano keeps the sub-millisecond ordering of exec events.
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		return eventCodec{}, fmt.Errorf("encoder: %w", err)
	}

	dec, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyQuiet,
		MaxNestedLevels: maxEventNesting,
	}.DecMode()
	if err != nil {
		return eventCodec{}, fmt.Errorf("decoder: %w", err)
	}

	return eventCodec{enc: enc, dec: dec}, nil
}

// EncodeEvent encodes an Event as one CBOR data item.
func EncodeEvent(event Event) ([]byte, error) {
	return codec.enc.Marshal(event)
}

// DecodeEvent decodes one CBOR data item into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := codec.dec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func newEventEncoder(w io.Writer) *cbor.Encoder { return codec.enc.NewEncoder(w) }

func newEventDecoder(r io.Reader) *cbor.Decoder { return codec.dec.NewDecoder(r) }
