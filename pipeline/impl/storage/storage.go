// Package storage loads source images and saves translated ones, either on the
// local filesystem or in Google Cloud Storage (gs://bucket/object).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/disintegration/imaging"
)

const GCS_SCHEME = "gs://"

type Client interface {
	SaveBytes(ctx context.Context, bucketName string, objectName string, data []byte) error
	LoadBytes(ctx context.Context, bucketName string, objectName string) ([]byte, error)
}

type gcsClient struct {
	storageClient *storage.Client
}

func New(storageClient *storage.Client) Client {
	return &gcsClient{storageClient: storageClient}
}

func (s *gcsClient) SaveBytes(ctx context.Context, bucketName string, objectName string, data []byte) error {
	bucket := s.storageClient.Bucket(bucketName)
	writer := bucket.Object(objectName).NewWriter(ctx)

	_, err := writer.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return nil
}

func (s *gcsClient) LoadBytes(ctx context.Context, bucketName string, objectName string) ([]byte, error) {
	reader, err := s.storageClient.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	return data, nil
}

// Sink resolves image locations. A nil Client only serves local paths.
type Sink struct {
	Client Client
}

func NewSink(client Client) *Sink {
	return &Sink{Client: client}
}

// Load decodes the image at location, applying EXIF orientation.
func (s *Sink) Load(ctx context.Context, location string) (image.Image, error) {
	bucket, object, remote := ParseLocation(location)
	if !remote {
		img, err := imaging.Open(location, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to open image %s: %w", location, err)
		}
		return img, nil
	}

	client, err := s.client()
	if err != nil {
		return nil, err
	}
	data, err := client.LoadBytes(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", location, err)
	}
	return img, nil
}

// Save encodes img in the format implied by the location's extension.
func (s *Sink) Save(ctx context.Context, location string, img image.Image) error {
	bucket, object, remote := ParseLocation(location)
	if !remote {
		if err := imaging.Save(img, location); err != nil {
			return fmt.Errorf("failed to save image %s: %w", location, err)
		}
		return nil
	}

	format, err := imaging.FormatFromFilename(object)
	if err != nil {
		return fmt.Errorf("failed to resolve image format for %s: %w", location, err)
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	buffer := new(bytes.Buffer)
	if err := imaging.Encode(buffer, img, format); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return client.SaveBytes(ctx, bucket, object, buffer.Bytes())
}

func (s *Sink) client() (Client, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("no storage client configured for gs:// locations")
	}
	return s.Client, nil
}

// ParseLocation splits gs://bucket/object. remote is false for local paths.
func ParseLocation(location string) (bucket, object string, remote bool) {
	if !strings.HasPrefix(location, GCS_SCHEME) {
		return "", "", false
	}
	bucket, object, _ = strings.Cut(strings.TrimPrefix(location, GCS_SCHEME), "/")
	return bucket, object, true
}
