package lyrics

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"lyricwidget/pkg/fileutil"
)

// Extensions 支持的歌词文件格式
var Extensions = []string{".lrc", ".srt", ".txt"}

var (
	ErrUnsupportedFormat   = errors.New("unsupported lyrics file format")
	ErrUnsupportedEncoding = errors.New("unsupported text encoding")
)

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// IsLyricsFile reports whether name carries one of the supported extensions.
func IsLyricsFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile 读取歌词文件，自动识别 UTF-8 / UTF-16 / GBK / Latin-1
func LoadFile(path string) (string, error) {
	if !IsLyricsFile(path) {
		return "", fmt.Errorf("%s: %w (supported: %s)", filepath.Base(path), ErrUnsupportedFormat, strings.Join(Extensions, ", "))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read lyrics file: %w", err)
	}
	return Decode(data)
}

// Decode converts raw lyric bytes to a UTF-8 string.
func Decode(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data)
	case utf8.Valid(data):
		return string(data), nil
	}

	if s, err := decodeWith(simplifiedchinese.GBK, data); err == nil && !strings.ContainsRune(s, utf8.RuneError) {
		return s, nil
	}
	// Latin-1 每个字节都合法，作为最后的兜底
	return decodeWith(charmap.ISO8859_1, data)
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode lyrics: %w", err)
	}
	return string(out), nil
}

// SaveFile 保存歌词到 dir，返回最终文件名
// format: lrc | srt | txt，encoding: utf-8 | gbk | gb2312
func SaveFile(dir, filename, text, format, enc string) (string, error) {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		format = "lrc"
	}
	if !IsLyricsFile("x." + format) {
		return "", fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}

	name := unsafeChars.ReplaceAllString(filepath.Base(filename), "-")
	if name == "" || name == "." {
		name = "lyrics"
	}
	if !strings.HasSuffix(strings.ToLower(name), "."+format) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + format
	}

	data, err := Encode(text, enc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := fileutil.WriteFileOverwrite(filepath.Join(dir, name), data, 0644); err != nil {
		return "", err
	}
	return name, nil
}

// Encode converts text to the named encoding.
func Encode(text, enc string) ([]byte, error) {
	switch strings.ToLower(enc) {
	case "", "utf-8", "utf8":
		return []byte(text), nil
	case "gbk", "gb2312":
		// GB2312 是 GBK 的子集
		out, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(text))
		if err != nil {
			return nil, fmt.Errorf("failed to encode lyrics as %s: %w", enc, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%q: %w", enc, ErrUnsupportedEncoding)
	}
}

// ListFiles 列出目录中的歌词文件（排序）
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list lyrics directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsLyricsFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
