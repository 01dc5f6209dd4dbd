// Package main serves Cosmic Messenger, a small real-time chat service.
//
//	messenger -addr=:3000
//
// Clients open a websocket to /socket and exchange named events encoded
// as JSON envelopes:
//
//	{"event": "message", "data": {"text": "hi"}}
//
// The relay is as ephemeral as can be. A "register" or "message" event is
// forwarded verbatim to every connected client, the sender included, and
// then forgotten. The "session" and "logout" events are accepted and
// discarded; they are reserved for future use. Event data is opaque to the
// relay: it is never validated, interpreted, or persisted.
//
// A separate HTTP API persists users and messages in an external Cosmic
// object store:
//
//	POST /api/register  {"username": "alice"}
//	POST /api/logout    {"userName": "alice"}
//	POST /api/message   {"content": "hi"}
//
// The two surfaces are intentionally independent: posting a message over
// HTTP does not broadcast it, and a socket "message" event does not persist
// anything. GET / and GET /{username} serve the front-end entry document.
package main
