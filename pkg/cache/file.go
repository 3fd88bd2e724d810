package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"lyricwidget/pkg/fileutil"
)

const (
	indexName = "lyrics_cache.list"
	kvFormat  = "%s => %s"
	kvSep     = " => "
)

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// File 基于目录的缓存：每个值一个文件，外加一个 "key => 文件名" 索引
type File struct {
	dir   string
	index sync.Map
	mu    sync.Mutex
}

// NewFile 打开（或创建）dir 下的缓存
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	f := &File{dir: dir}
	if err := f.loadIndex(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) loadIndex() error {
	fh, err := os.Open(filepath.Join(f.dir, indexName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache index: %w", err)
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), kvSep, 2)
		if len(kv) != 2 {
			continue
		}
		f.index.Store(kv[0], kv[1])
	}
	return scanner.Err()
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	name, ok := f.index.Load(key)
	if !ok {
		// 旧版本只按文件名缓存，没有索引
		name = fileName(key)
	}
	data, err := os.ReadFile(filepath.Join(f.dir, name.(string)))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}
	return string(data), true, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	name := fileName(key)
	if err := fileutil.WriteFileOverwrite(filepath.Join(f.dir, name), []byte(value), 0644); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, loaded := f.index.LoadOrStore(key, name); loaded {
		return nil
	}
	return fileutil.AppendLine(filepath.Join(f.dir, indexName), fmt.Sprintf(kvFormat, key, name))
}

func fileName(key string) string {
	return unsafeChars.ReplaceAllString(key, "-")
}
