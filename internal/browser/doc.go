// Package browser drives the messaging web client through a real browser.
//
// The client has no programmatic API, so a Driver performs the same steps an
// operator would: search for the group, open it, type the message and press
// send. One Driver owns one browser session for one run:
//
//	UNINITIALIZED → LAUNCHING → AWAITING_READY → READY
//	READY → SEARCHING → SELECTING → COMPOSING → SENDING → READY (per group)
//	any → CLOSED
//
// AwaitReady is a human-in-the-loop step: the client only shows its search
// surface after someone scans the login QR code on a phone. The driver can
// only wait for that, bounded by a timeout.
//
// Driver talks to the page through the small Page interface; the go-rod
// implementation lives in rod.go.
package browser
