// Copyright 2024 The chunkstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hub-go/chunkstore/store/chunkerr"
)

// S3Provider is a Provider backed by an S3 bucket/prefix: the slowest,
// effectively unbounded remote tier of a cache chain. It talks to S3
// through the concrete SDK client (rather than a narrowed interface) so it
// can hand that client directly to feature/s3/manager's Uploader and
// paginator helpers, which themselves require the concrete client type.
// Contract tests for S3Provider are therefore integration tests, skipped
// unless CHUNKSTORE_TEST_S3_BUCKET is set — the same shape as the original
// Python suite's s3_creds_exist() skip guard (see DESIGN.md).
type S3Provider struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Provider builds a Provider over bucket, storing all keys under
// prefix (which may be empty). client is typically s3.NewFromConfig after
// config.LoadDefaultConfig; authentication itself is left to the AWS SDK's
// default credential chain.
func NewS3Provider(client *s3.Client, bucket, prefix string) *S3Provider {
	return &S3Provider{client: client, bucket: bucket, prefix: prefix}
}

var _ Provider = (*S3Provider)(nil)

func (p *S3Provider) objectKey(key string) string {
	if p.prefix == "" {
		return key
	}
	return p.prefix + "/" + key
}

func (p *S3Provider) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
	})
	if err != nil {
		return nil, s3Error(err, key)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, chunkerr.BackendFailure(err, "reading s3 object %q", key)
	}
	return data, nil
}

func (p *S3Provider) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, chunkerr.InvalidArgument("get_range offset and length must be >= 0, got offset=%d length=%d", offset, length)
	}
	head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
	})
	if err != nil {
		return nil, s3Error(err, key)
	}
	if length == 0 || offset >= aws.ToInt64(head.ContentLength) {
		return []byte{}, nil
	}
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, s3Error(err, key)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, chunkerr.BackendFailure(err, "reading ranged s3 object %q", key)
	}
	return data, nil
}

func (p *S3Provider) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	uploader := manager.NewUploader(p.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return chunkerr.BackendFailure(err, "uploading s3 object %q", key)
	}
	return nil
}

func (p *S3Provider) PutRange(ctx context.Context, key string, value []byte, offset int64, overwrite bool) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	current, err := p.Get(ctx, key)
	if err != nil && !errors.Is(err, chunkerr.ErrNotFound) {
		return err
	}
	next, err := ApplyPutRange(current, value, offset, overwrite)
	if err != nil {
		return err
	}
	return p.Put(ctx, key, next)
}

func (p *S3Provider) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := p.Get(ctx, key); err != nil {
		return err
	}
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.objectKey(key)),
	})
	if err != nil {
		return chunkerr.BackendFailure(err, "deleting s3 object %q", key)
	}
	return nil
}

func (p *S3Provider) Iterate(ctx context.Context) (KeyIterator, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, chunkerr.BackendFailure(err, "listing s3 objects")
		}
		for _, obj := range page.Contents {
			keys = append(keys, p.stripPrefix(aws.ToString(obj.Key)))
		}
	}
	sort.Strings(keys)
	return newSliceIterator(keys), nil
}

func (p *S3Provider) stripPrefix(objectKey string) string {
	if p.prefix == "" {
		return objectKey
	}
	return objectKey[len(p.prefix)+1:]
}

func (p *S3Provider) Len(ctx context.Context) (int, error) {
	it, err := p.Iterate(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// Flush is a no-op: every S3Provider write is already durable once the
// PutObject/Upload call returns.
func (p *S3Provider) Flush(_ context.Context) error {
	return nil
}

func s3Error(err error, key string) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return chunkerr.NotFound("key %q not found", key)
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return chunkerr.NotFound("key %q not found", key)
	}
	return chunkerr.BackendFailure(err, "s3 operation on %q", key)
}
