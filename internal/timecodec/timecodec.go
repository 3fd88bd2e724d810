package timecodec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimestamp 将时间戳各字段转换为秒
// frac 是原始的小数部分文本（1-3 位），统一补齐/截断为 3 位毫秒：
// ".1" -> 100ms, ".13" -> 130ms, ".130" -> 130ms
func ParseTimestamp(h, m, s int, frac string) float64 {
	ms := 0
	if frac != "" {
		if len(frac) > 3 {
			frac = frac[:3]
		}
		frac += strings.Repeat("0", 3-len(frac))
		ms, _ = strconv.Atoi(frac)
	}
	return float64(h*3600+m*60+s) + float64(ms)/1000
}

// FormatSeconds 格式化为 MM:SS，截断而不是四舍五入
func FormatSeconds(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec <= 0 {
		return "00:00"
	}
	total := int64(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ParseDisplay is the inverse of FormatSeconds at one-second granularity.
func ParseDisplay(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid display time %q", s)
	}
	mins, err := strconv.Atoi(parts[0])
	if err != nil || mins < 0 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	sec, err := strconv.Atoi(parts[1])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid seconds in %q", s)
	}
	return float64(mins*60 + sec), nil
}
