package errors

import "fmt"

var (
	ErrWorkerPanic           = fmt.Errorf("worker panic")
	ErrOnlyCensoredFiles     = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords            = fmt.Errorf("no words have been found")
	ErrInvalidPayload        = fmt.Errorf("invalid event payload")
	ErrEmptyReply            = fmt.Errorf("generator returned an empty reply")
	ErrGeneratorStatus       = fmt.Errorf("generator returned a non-success status")
	ErrInvalidToken          = fmt.Errorf("invalid handshake token")
	ErrUnknownFrame          = fmt.Errorf("unknown inbound frame")
	ErrMalformedFramePayload = fmt.Errorf("malformed frame payload")
)
