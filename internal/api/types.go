package api

import (
	"time"

	"github.com/strmtools/netmond/internal/netmon"
)

// ChangeEvent is the payload streamed to websocket clients when the usable
// address set changes.
type ChangeEvent struct {
	Addresses  []string                  `json:"addresses"`
	Interfaces []netmon.NetworkInterface `json:"interfaces"`
	DetectedAt time.Time                 `json:"detectedAt"`
}
