// Package host is the boundary with the node-graph editor: view URLs,
// executed-node payloads and the node a widget is mounted on.
package host

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes = errors.New("path escapes its base directory")
	ErrUnknownType = errors.New("unknown file type")
)

// FileRef 宿主中的文件引用
type FileRef struct {
	Filename  string `json:"filename"`
	Type      string `json:"type,omitempty"` // input | output | temp
	Subfolder string `json:"subfolder,omitempty"`
}

// Title is the last path element of the file name.
func (f FileRef) Title() string {
	name := f.Filename
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// ViewURL 构建播放地址：base/view?filename=..&type=..[&subfolder=..]
func ViewURL(base string, ref FileRef) string {
	typ := ref.Type
	if typ == "" {
		typ = "output"
	}
	u := fmt.Sprintf("%s/view?filename=%s&type=%s", strings.TrimRight(base, "/"), url.QueryEscape(ref.Filename), typ)
	if ref.Subfolder != "" {
		u += "&subfolder=" + url.QueryEscape(ref.Subfolder)
	}
	return u
}

// Resolver maps view URLs back to local files.
type Resolver struct {
	InputDir  string
	OutputDir string
	TempDir   string
}

// Resolve accepts a view URL, a file:// URL or a plain path.
func (r Resolver) Resolve(raw string) (string, error) {
	if strings.HasPrefix(raw, "file://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("invalid file url %q: %w", raw, err)
		}
		return u.Path, nil
	}

	ref, ok, err := ParseViewURL(raw)
	if err != nil {
		return "", err
	}
	if !ok {
		return raw, nil
	}
	return r.ResolveRef(ref)
}

// ParseViewURL is the inverse of ViewURL. ok is false when raw is not a
// view URL at all.
func ParseViewURL(raw string) (ref FileRef, ok bool, err error) {
	i := strings.Index(raw, "/view?")
	if i < 0 {
		return FileRef{}, false, nil
	}
	q, err := url.ParseQuery(raw[i+len("/view?"):])
	if err != nil {
		return FileRef{}, true, fmt.Errorf("invalid view url %q: %w", raw, err)
	}
	return FileRef{
		Filename:  q.Get("filename"),
		Type:      q.Get("type"),
		Subfolder: q.Get("subfolder"),
	}, true, nil
}

// ResolveRef maps a file reference to a path inside its type's directory.
func (r Resolver) ResolveRef(ref FileRef) (string, error) {
	var base string
	switch ref.Type {
	case "", "output":
		base = r.OutputDir
	case "input":
		base = r.InputDir
	case "temp":
		base = r.TempDir
	default:
		return "", fmt.Errorf("%q: %w", ref.Type, ErrUnknownType)
	}
	if ref.Filename == "" {
		return "", errors.New("empty file name")
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	full := filepath.Join(base, ref.Subfolder, ref.Filename)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", ref.Filename, ErrPathEscapes)
	}
	return full, nil
}
