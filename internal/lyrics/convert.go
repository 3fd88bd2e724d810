package lyrics

import (
	"fmt"

	"github.com/liuzl/gocc"
)

// TextConverter rewrites lyric text, e.g. Traditional to Simplified Chinese.
type TextConverter interface {
	Convert(in string) (string, error)
}

// NewOpenCC 创建 OpenCC 转换器，conversion 如 "t2s"、"s2t"
func NewOpenCC(conversion string) (TextConverter, error) {
	c, err := gocc.New(conversion)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenCC converter %q: %w", conversion, err)
	}
	return c, nil
}

// ConvertText applies c, returning the original text if c is nil or fails.
func ConvertText(c TextConverter, text string) string {
	if c == nil || text == "" {
		return text
	}
	out, err := c.Convert(text)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to convert lyrics, using original text")
		return text
	}
	return out
}
