/*
Copyright (C) 2024  AsyncMF Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package checkpoint

import (
	"bytes"
	"context"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store uploads finished model files to an S3-compatible bucket. The
// client is opened on first use under a mutex rather than at construction
// time, so a Store value can be built up-front (e.g. from flag parsing)
// before credentials are known to be needed.
type S3Store struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // non-empty for non-AWS S3-compatible backends (MinIO, etc.)
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
	SourceTag       string

	mu     sync.Mutex
	client *s3.Client
}

func (s *S3Store) ensureOpen(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	if s.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
		o.UsePathStyle = s.ForcePathStyle
	})
	s.client = client
	return client, nil
}

func (s *S3Store) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return s.Prefix + "/" + name
}

func (s *S3Store) Save(localPath string) (Metadata, error) {
	ctx := context.Background()
	client, err := s.ensureOpen(ctx)
	if err != nil {
		return Metadata{}, err
	}

	body, err := os.ReadFile(localPath)
	if err != nil {
		return Metadata{}, err
	}

	meta := newMetadata(s.SourceTag)
	objectKey := s.key("model-" + meta.RunID + ".txt")

	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(body),
	}); err != nil {
		return Metadata{}, err
	}

	metaBody, err := meta.marshal()
	if err != nil {
		return Metadata{}, err
	}
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(objectKey + ".meta.json"),
		Body:   bytes.NewReader(metaBody),
	}); err != nil {
		return Metadata{}, err
	}

	// "latest" object lets mf-predict fetch the newest checkpoint without
	// listing the bucket.
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key("latest.txt")),
		Body:   bytes.NewReader(body),
	}); err != nil {
		return Metadata{}, err
	}

	return meta, nil
}
