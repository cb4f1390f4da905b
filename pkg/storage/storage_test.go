package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorageUploadAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	ctx := context.Background()
	url, err := s.Upload(ctx, strings.NewReader("img"), "forum", "a1.png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/uploads/forum/a1.png" {
		t.Fatalf("url = %q", url)
	}
	if _, err := os.Stat(filepath.Join(root, "forum", "a1.png")); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	if _, err := s.Upload(ctx, strings.NewReader("again"), "forum", "a1.png"); err == nil {
		t.Fatalf("expected collision error on duplicate name")
	}

	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "uploads")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	url, err := s.Upload(context.Background(), strings.NewReader("x"), "../../etc", "../passwd")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "/uploads/etc/passwd" {
		t.Fatalf("url = %q", url)
	}
	if _, err := os.Stat(filepath.Join(root, "etc", "passwd")); err != nil {
		t.Fatalf("file should stay under root: %v", err)
	}
}

func TestExtractPublicID(t *testing.T) {
	id, kind := extractPublicID("https://res.cloudinary.com/demo/video/upload/v1712/growers/forum/abc.mp4")
	if id != "growers/forum/abc" || kind != "video" {
		t.Fatalf("got (%q, %q)", id, kind)
	}
	if id, _ := extractPublicID("https://example.com/nothing.png"); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}

func TestSniff(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	mime, ext, err := Sniff(png, ImageTypes)
	if err != nil || mime != "image/png" || ext != ".png" {
		t.Fatalf("png: %q %q %v", mime, ext, err)
	}

	if _, _, err := Sniff([]byte("#!/bin/sh\nrm -rf /\n"), MediaTypes); err == nil {
		t.Fatal("shell script accepted")
	}

	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	if _, ext, err := Sniff(gif, MediaTypes); err != nil || ext != ".gif" {
		t.Fatalf("gif: %q %v", ext, err)
	}
}
