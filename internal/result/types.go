package result

import "encoding/json"

// ImageResult is the externally visible outcome for one evaluated image.
// TotalBits is nil when the payload failed validation and the bit cost is
// unknown.
type ImageResult struct {
	RMS       float64 `json:"rms"`
	Fail      bool    `json:"fail"`
	TotalBits *int64  `json:"total_bits"`
}

// Summary is the competition verdict for a whole run: per-image results
// split into the required and supplementary groups, plus the one overall
// flag. Only required-group failures set Failed.
type Summary struct {
	Required map[string]ImageResult `json:"required"`
	Extra    map[string]ImageResult `json:"extra"`
	Failed   bool                   `json:"failed"`
}

// Artifact is a snapshot of a raw encoded artifact, persisted alongside the
// report for later inspection. The header keeps whatever shape the
// submission gave it.
type Artifact struct {
	VLC        [][2]int64      `json:"vlc"`
	Header     json.RawMessage `json:"header"`
	HeaderBits int64           `json:"header_bits"`
}
