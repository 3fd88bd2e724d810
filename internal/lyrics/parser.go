package lyrics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"lyricwidget/internal/timecodec"
)

// Cue 一条带时间戳的歌词/字幕
type Cue struct {
	Time float64 // 秒
	Text string
}

// Format is the structured format detected in a lyric text.
type Format int

const (
	FormatNone Format = iota
	FormatSRT
	FormatLRC
	FormatPlain
)

func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "srt"
	case FormatLRC:
		return "lrc"
	case FormatPlain:
		return "plain"
	default:
		return "none"
	}
}

// Result is the detailed outcome of a parse.
type Result struct {
	Cues     []Cue
	Format   Format // detected format
	Fallback bool   // plain-text fallback produced Cues
}

// plainInterval 纯文本每行间隔（秒）
const plainInterval = 3

var (
	srtBlockSep = regexp.MustCompile(`\n\s*\n`)
	srtTimeLine = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)

	// [mm:ss.fff]text 直到下一个 [
	lrcInline = regexp.MustCompile(`\[(\d{1,2}):(\d{1,2})[.:](\d{1,3})\]([^\[]*)`)
	lrcLine   = regexp.MustCompile(`^\s*\[(\d{1,2}):(\d{1,2})[.:](\d{1,3})\](.*)`)

	newlines = regexp.MustCompile(`\r\n|\r|\n`)
)

// Parse 解析歌词文本，永远不会失败
func Parse(input any) []Cue {
	return ParseDetailed(input).Cues
}

// ParseText is Parse for callers that already hold a string.
func ParseText(text string) []Cue {
	return ParseDetailed(text).Cues
}

// ParseDetailed parses input and reports which path produced the cues.
func ParseDetailed(input any) Result {
	text := Normalize(input)
	if text == "" {
		return Result{Cues: []Cue{}, Format: FormatNone}
	}

	format := Detect(text)
	var cues []Cue
	switch format {
	case FormatSRT:
		cues = parseSRT(text)
	case FormatLRC:
		cues = parseLRC(text)
	}
	if len(cues) > 0 {
		return Result{Cues: cues, Format: format}
	}

	return Result{Cues: parsePlain(text), Format: format, Fallback: true}
}

// Normalize 将各种输入统一为去除首尾空白的字符串
func Normalize(input any) string {
	var s string
	switch v := input.(type) {
	case nil:
		return ""
	case string:
		s = v
	case []string:
		s = strings.Join(v, "\n")
	case []any:
		parts := lo.Map(v, func(e any, _ int) string {
			if e == nil {
				return ""
			}
			return fmt.Sprint(e)
		})
		s = strings.Join(parts, "\n")
	case []byte:
		s = string(v)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return strings.TrimSpace(s)
}

// Detect 按优先级检测格式：SRT > LRC > 纯文本
func Detect(text string) Format {
	if strings.Contains(text, "-->") && !strings.Contains(text, "[00:") {
		return FormatSRT
	}
	if strings.Contains(text, "[") && strings.Contains(text, "]") {
		return FormatLRC
	}
	return FormatPlain
}

func parseSRT(text string) []Cue {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var cues []Cue

	for _, block := range srtBlockSep.Split(text, -1) {
		lines := lo.FilterMap(strings.Split(strings.TrimSpace(block), "\n"), func(l string, _ int) (string, bool) {
			l = strings.TrimSpace(l)
			return l, l != ""
		})
		if len(lines) < 3 {
			continue
		}

		m := srtTimeLine.FindStringSubmatch(lines[1])
		if m == nil {
			continue
		}
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])

		body := strings.TrimSpace(strings.Join(lines[2:], " "))
		if body == "" {
			continue
		}
		cues = append(cues, Cue{Time: timecodec.ParseTimestamp(h, mins, sec, m[4]), Text: body})
	}

	sortCues(cues)
	return cues
}

func parseLRC(text string) []Cue {
	var cues []Cue

	// 单行格式：[00:00.13]歌词1[00:02.93]歌词2...
	if !strings.Contains(text, "\n") && strings.Contains(text, "][") {
		for _, m := range lrcInline.FindAllStringSubmatch(text, -1) {
			body := strings.TrimSpace(m[4])
			if body == "" {
				continue
			}
			cues = append(cues, Cue{Time: lrcTime(m[1], m[2], m[3]), Text: body})
		}
		sortCues(cues)
		return cues
	}

	for _, line := range newlines.Split(text, -1) {
		m := lrcLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// 只有时间戳的空行也保留，作为间隔占位
		cues = append(cues, Cue{Time: lrcTime(m[1], m[2], m[3]), Text: strings.TrimSpace(m[4])})
	}
	sortCues(cues)
	return cues
}

func lrcTime(mins, sec, frac string) float64 {
	m, _ := strconv.Atoi(mins)
	s, _ := strconv.Atoi(sec)
	return timecodec.ParseTimestamp(0, m, s, frac)
}

func parsePlain(text string) []Cue {
	lines := lo.FilterMap(newlines.Split(text, -1), func(l string, _ int) (string, bool) {
		l = strings.TrimSpace(l)
		return l, l != ""
	})

	cues := make([]Cue, 0, len(lines))
	for i, l := range lines {
		cues = append(cues, Cue{Time: float64(i * plainInterval), Text: l})
	}
	if len(cues) == 0 {
		cues = append(cues, Cue{Time: 0, Text: strings.TrimSpace(text)})
	}
	return cues
}

// sortCues 稳定排序，相同时间保持原顺序
func sortCues(cues []Cue) {
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Time < cues[j].Time })
}
