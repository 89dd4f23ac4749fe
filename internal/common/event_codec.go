package common

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
)

// EncodeEvent 事件编码：4字节小端Type + gob编码的InnerEvent
func EncodeEvent(event *Event) ([]byte, error) {
	var buf bytes.Buffer

	typeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(typeBytes, uint32(event.Type))
	buf.Write(typeBytes)

	enc := gob.NewEncoder(&buf)

	switch event.Type {
	case WhaleTradeEventType:
		trade, ok := event.InnerEvent.(*WhaleTradeEvent)
		if !ok {
			return nil, fmt.Errorf("inner event type mismatch: %T", event.InnerEvent)
		}
		if err := enc.Encode(trade); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown event type: %d", event.Type)
	}
	return buf.Bytes(), nil
}

// DecodeEvent 事件解码，与EncodeEvent对应
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short")
	}

	eventType := EventType(binary.LittleEndian.Uint32(data[:4]))
	dec := gob.NewDecoder(bytes.NewReader(data[4:]))

	event := &Event{Type: eventType}

	switch eventType {
	case WhaleTradeEventType:
		var trade WhaleTradeEvent
		if err := dec.Decode(&trade); err != nil {
			return nil, err
		}
		event.InnerEvent = &trade
	default:
		return nil, fmt.Errorf("unknown event type: %d", eventType)
	}

	return event, nil
}
