package host

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Executed 节点执行后宿主发来的消息
type Executed struct {
	Audio  []FileRef `json:"audio"`
	Lyrics string    `json:"-"`
}

// DecodeExecuted parses an executed-node payload. Lyrics are read from the
// first non-empty of "lyrics", "lyric" and "text"; an array contributes its
// first element.
func DecodeExecuted(payload []byte) (Executed, error) {
	var raw struct {
		Audio  []FileRef       `json:"audio"`
		Lyrics json.RawMessage `json:"lyrics"`
		Lyric  json.RawMessage `json:"lyric"`
		Text   json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Executed{}, fmt.Errorf("invalid executed message: %w", err)
	}

	msg := Executed{Audio: raw.Audio}
	for _, field := range []json.RawMessage{raw.Lyrics, raw.Lyric, raw.Text} {
		if s := firstString(field); s != "" {
			msg.Lyrics = s
			break
		}
	}
	return msg, nil
}

func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return ""
		}
		v = arr[0]
	}
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// HasLyrics reports whether the message carries non-blank lyrics.
func (e Executed) HasLyrics() bool {
	return strings.TrimSpace(e.Lyrics) != ""
}
