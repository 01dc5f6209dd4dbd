package main

import (
	"encoding/json"
	"errors"
)

// eventName identifies a named event on the real-time channel. The set is
// closed: every event a client can emit has a variant here, including the
// reserved ones that currently do nothing.
type eventName string

const (
	// eventRegister announces a newly chosen identity. Rebroadcast to all.
	eventRegister eventName = "register"

	// eventSession is reserved. Accepted, no effect.
	eventSession eventName = "session"

	// eventLogout is reserved. Accepted, no effect.
	eventLogout eventName = "logout"

	// eventMessage carries a chat message. Rebroadcast to all.
	eventMessage eventName = "message"
)

var errBadEnvelope = errors.New("frame is not an event envelope")

// envelope is the wire shape of a real-time frame. Data is opaque to the
// relay and is carried as raw bytes so a forwarded frame is bit-identical
// to the received one.
type envelope struct {
	Event eventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func decodeEnvelope(frame []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return envelope{}, errBadEnvelope
	}
	if env.Event == "" {
		return envelope{}, errBadEnvelope
	}
	return env, nil
}

func encodeEnvelope(event eventName, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}
