// SPDX-License-Identifier: MIT

// Package storage uploads finished archive manifests to S3-compatible
// object storage.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectInfo struct {
	Key         string
	ContentType string
	ETag        string
}

type Storage interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Stat(ctx context.Context, bucket, path string) (ObjectInfo, error)
	Get(ctx context.Context, bucket, path string) (io.Reader, error)
	PutFile(ctx context.Context, bucket string, remotepath string, localpath string, contentType string) error
	Remove(ctx context.Context, bucket, path string) error
}

// remoteStorage talks to a remote S3-compatible server. The other
// implementation is fakeStorage, which is used for testing.
type remoteStorage struct {
	client *minio.Client
}

func (s *remoteStorage) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.client.BucketExists(ctx, bucket)
}

func (s *remoteStorage) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	result := make([]ObjectInfo, 0)
	for f := range s.client.ListObjects(ctx, bucket, opts) {
		o := ObjectInfo{Key: f.Key, ContentType: f.ContentType, ETag: f.ETag}
		result = append(result, o)
	}
	return result, nil
}

func (s *remoteStorage) Stat(ctx context.Context, bucket, path string) (ObjectInfo, error) {
	st, err := s.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: st.Key, ContentType: st.ContentType, ETag: st.ETag}, nil
}

func (s *remoteStorage) Get(ctx context.Context, bucket, path string) (io.Reader, error) {
	return s.client.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
}

func (s *remoteStorage) PutFile(ctx context.Context, bucket string, remotepath string, localpath string, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.FPutObject(ctx, bucket, remotepath, localpath, opts)
	return err
}

func (s *remoteStorage) Remove(ctx context.Context, bucket, path string) error {
	return s.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{})
}

// NewStorage sets up a client for accessing S3-compatible object
// storage. keypath points to a JSON file with endpoint and credentials.
func NewStorage(keypath string) (Storage, error) {
	data, err := os.ReadFile(keypath)
	if err != nil {
		return nil, err
	}

	var config struct{ Endpoint, Key, Secret string }
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Key, config.Secret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, err
	}

	client.SetAppInfo("MercatorTileArchiver", "0.1")
	return &remoteStorage{client: client}, nil
}

// contentType picks a MIME type from the file name.
func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".metadata"):
		return "application/json"
	case strings.HasSuffix(name, ".zip.zip"), strings.HasSuffix(name, ".zip"):
		return "application/zip"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	default:
		return "text/plain"
	}
}

// UploadArchive puts every file of a local archive directory into the
// bucket, keyed under the directory's base name.
func UploadArchive(ctx context.Context, s Storage, bucket, dir string, logger *log.Logger) error {
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("storage bucket %q does not exist", bucket)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	prefix := filepath.Base(dir)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		remote := prefix + "/" + name
		local := filepath.Join(dir, name)
		if err := s.PutFile(ctx, bucket, remote, local, contentType(name)); err != nil {
			return fmt.Errorf("uploading %s: %w", remote, err)
		}
		logger.Printf("uploaded %s/%s", bucket, remote)
	}
	return nil
}
