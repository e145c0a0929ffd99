package runner

import (
	"github.com/mfellner/squeezeoff/internal/isolate"
	"github.com/mfellner/squeezeoff/internal/vlc"
)

// BitBudget is the fixed competition limit per image. A record passes at
// exactly BitBudget bits and fails at one bit over.
const BitBudget = 40960

// TotalBits accounts the full cost of an encoded artifact: the declared
// header bits plus the validated payload bits. A malformed payload comes
// back as a *vlc.MalformedError, leaving both counts unknown.
func TotalBits(enc *isolate.EncodeOutput) (total, payload int64, err error) {
	payload, err = vlc.Test(enc.VLC)
	if err != nil {
		return 0, 0, err
	}
	return enc.HeaderBits + payload, payload, nil
}
