package detection

import "github.com/ironsheep/sketch-tools-mcp/internal/geometry"

// Message types exchanged with a Worker.
const (
	TypeDetect = "detect"
	TypeResult = "result"
	TypeError  = "error"
	TypeLog    = "log"
)

// Request asks a worker to run detection on a frame. Buffer is handed over
// to the worker: the sender must not touch it after posting.
type Request struct {
	Type   string  `json:"type"`
	ID     uint64  `json:"id"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Buffer []byte  `json:"buffer"`
	Opts   Options `json:"opts"`
}

// Message is a worker reply. Result and error messages answer the request
// with the same ID. Log messages carry the ID of the request they came from,
// or zero when they are not tied to one.
type Message struct {
	Type    string         `json:"type"`
	ID      uint64         `json:"id,omitempty"`
	Rects   []geometry.Box `json:"rects,omitempty"`
	Message string         `json:"message,omitempty"`
}
