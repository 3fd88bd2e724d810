package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lrc")
	if err := os.WriteFile(path, []byte("[ti:x]\n[00:05.00]second\n[00:01.50]first\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	cmd := parseCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "# format=lrc cues=2 fallback=false\n00:01 first\n00:05 second\n"
	if out.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestParseCmdRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.doc")
	os.WriteFile(path, []byte("x"), 0644)
	cmd := parseCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestURLCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := urlCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"my song.mp3", "--base", "http://h:8188", "--subfolder", "a/b", "--type", "temp"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	want := "http://h:8188/view?filename=my+song.mp3&type=temp&subfolder=a%2Fb"
	if strings.TrimSpace(out.String()) != want {
		t.Errorf("got %q", out.String())
	}
}

func TestSaveCmd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.lrc")
	if err := os.WriteFile(src, []byte("[00:01.00]你好\n"), 0644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()
	var out bytes.Buffer
	cmd := saveCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{src, "copy.txt", "--dir", outDir, "--format", "srt"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	name := strings.TrimSpace(out.String())
	if filepath.Ext(name) != ".srt" {
		t.Errorf("extension not forced: %q", name)
	}
	if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}
