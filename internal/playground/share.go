package playground

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"

	"codeplay/internal/runtime"
)

// maxShareSize bounds a decoded share payload.
const maxShareSize = 1 << 20

// Snippet is the persisted and shareable editor state.
type Snippet struct {
	Language runtime.Language `json:"language"`
	Code     string           `json:"code"`
}

var (
	shareEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	shareDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxShareSize))
)

// EncodeShare packs s into a URL-fragment-safe token.
func EncodeShare(s Snippet) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding snippet: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(shareEncoder.EncodeAll(data, nil)), nil
}

// DecodeShare reverses EncodeShare. A leading "#" is ignored. Anything that
// does not decode to a snippet yields nil.
func DecodeShare(fragment string) *Snippet {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if fragment == "" {
		return nil
	}

	compressed, err := base64.RawURLEncoding.DecodeString(fragment)
	if err != nil {
		return nil
	}
	data, err := shareDecoder.DecodeAll(compressed, nil)
	if err != nil || len(data) == 0 {
		return nil
	}

	var s Snippet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return &s
}
