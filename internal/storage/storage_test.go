// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/orcaman/writerseeker"
)

// fakeStorage keeps uploaded objects in memory.
type fakeStorage struct {
	bucket  string
	objects map[string]*writerseeker.WriterSeeker
	types   map[string]string
}

func newFakeStorage(bucket string) *fakeStorage {
	return &fakeStorage{
		bucket:  bucket,
		objects: make(map[string]*writerseeker.WriterSeeker),
		types:   make(map[string]string),
	}
}

func (s *fakeStorage) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return bucket == s.bucket, nil
}

func (s *fakeStorage) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var result []ObjectInfo
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			result = append(result, ObjectInfo{Key: key, ContentType: s.types[key]})
		}
	}
	return result, nil
}

func (s *fakeStorage) Stat(ctx context.Context, bucket, path string) (ObjectInfo, error) {
	if _, ok := s.objects[path]; !ok {
		return ObjectInfo{}, fmt.Errorf("no such object: %s", path)
	}
	return ObjectInfo{Key: path, ContentType: s.types[path]}, nil
}

func (s *fakeStorage) Get(ctx context.Context, bucket, path string) (io.Reader, error) {
	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", path)
	}
	return obj.BytesReader(), nil
}

func (s *fakeStorage) PutFile(ctx context.Context, bucket, remotepath, localpath, contentType string) error {
	data, err := os.ReadFile(localpath)
	if err != nil {
		return err
	}
	obj := &writerseeker.WriterSeeker{}
	if _, err := obj.Write(data); err != nil {
		return err
	}
	s.objects[remotepath] = obj
	s.types[remotepath] = contentType
	return nil
}

func (s *fakeStorage) Remove(ctx context.Context, bucket, path string) error {
	delete(s.objects, path)
	delete(s.types, path)
	return nil
}

func TestUploadArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"tiles__0_to_5.contents": "0/0/0.png\n",
		"tiles__0_to_5.metadata": `{"description":"x"}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s := newFakeStorage("tiles")
	logger := log.New(io.Discard, "", 0)
	if err := UploadArchive(context.Background(), s, "tiles", dir, logger); err != nil {
		t.Fatal(err)
	}

	for name, content := range files {
		key := "archive/" + name
		r, err := s.Get(context.Background(), "tiles", key)
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != content {
			t.Errorf("object %s: got %q, want %q", key, got, content)
		}
	}
	info, err := s.Stat(context.Background(), "tiles", "archive/tiles__0_to_5.metadata")
	if err != nil {
		t.Fatal(err)
	}
	if info.ContentType != "application/json" {
		t.Errorf("got content type %q, want application/json", info.ContentType)
	}
}

func TestUploadArchive_MissingBucket(t *testing.T) {
	s := newFakeStorage("tiles")
	logger := log.New(io.Discard, "", 0)
	err := UploadArchive(context.Background(), s, "nosuchbucket", t.TempDir(), logger)
	if err == nil {
		t.Error("expected an error for a missing bucket")
	}
}
