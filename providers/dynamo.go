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
	"context"
	"errors"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hub-go/chunkstore/store/chunkerr"
)

const dynamoKeyAttr = "key"
const dynamoValueAttr = "value"

// DynamoProvider is a Provider backed by a DynamoDB table, used as a second
// remote tier alongside S3Provider. DynamoDB items are capped at 400KB, so
// DynamoProvider suits small values (chunk-name-encoder snapshots, small
// chunks, manifests) rather than large chunk payloads, the same way a
// content-addressed chunk store uses DynamoDB as a manifest backend
// alongside a bulk object-store tier, not as the bulk tier itself.
type DynamoProvider struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoProvider builds a Provider over an existing DynamoDB table with
// a single string partition key named "key".
func NewDynamoProvider(client *dynamodb.Client, table string) *DynamoProvider {
	return &DynamoProvider{client: client, table: table}
}

var _ Provider = (*DynamoProvider)(nil)

func (p *DynamoProvider) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		dynamoKeyAttr: &types.AttributeValueMemberS{Value: key},
	}
}

func (p *DynamoProvider) getItem(ctx context.Context, key string) ([]byte, error) {
	out, err := p.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &p.table,
		Key:       p.itemKey(key),
	})
	if err != nil {
		return nil, chunkerr.BackendFailure(err, "dynamodb get %q", key)
	}
	if out.Item == nil {
		return nil, chunkerr.NotFound("key %q not found", key)
	}
	v, ok := out.Item[dynamoValueAttr].(*types.AttributeValueMemberB)
	if !ok {
		return nil, chunkerr.BackendFailure(errors.New("missing or malformed value attribute"), "dynamodb get %q", key)
	}
	return v.Value, nil
}

func (p *DynamoProvider) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return p.getItem(ctx, key)
}

func (p *DynamoProvider) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, chunkerr.InvalidArgument("get_range offset and length must be >= 0, got offset=%d length=%d", offset, length)
	}
	v, err := p.getItem(ctx, key)
	if err != nil {
		return nil, err
	}
	if offset >= int64(len(v)) {
		return []byte{}, nil
	}
	end := offset + length
	if end > int64(len(v)) {
		end = int64(len(v))
	}
	return v[offset:end], nil
}

func (p *DynamoProvider) putItem(ctx context.Context, key string, value []byte) error {
	item := p.itemKey(key)
	item[dynamoValueAttr] = &types.AttributeValueMemberB{Value: value}
	_, err := p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &p.table,
		Item:      item,
	})
	if err != nil {
		return chunkerr.BackendFailure(err, "dynamodb put %q", key)
	}
	return nil
}

func (p *DynamoProvider) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return p.putItem(ctx, key, value)
}

func (p *DynamoProvider) PutRange(ctx context.Context, key string, value []byte, offset int64, overwrite bool) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	current, err := p.getItem(ctx, key)
	if err != nil && !errors.Is(err, chunkerr.ErrNotFound) {
		return err
	}
	next, err := ApplyPutRange(current, value, offset, overwrite)
	if err != nil {
		return err
	}
	return p.putItem(ctx, key, next)
}

func (p *DynamoProvider) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := p.getItem(ctx, key); err != nil {
		return err
	}
	_, err := p.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &p.table,
		Key:       p.itemKey(key),
	})
	if err != nil {
		return chunkerr.BackendFailure(err, "dynamodb delete %q", key)
	}
	return nil
}

func (p *DynamoProvider) Iterate(ctx context.Context) (KeyIterator, error) {
	var keys []string
	paginator := dynamodb.NewScanPaginator(p.client, &dynamodb.ScanInput{
		TableName:            &p.table,
		ProjectionExpression: aws.String(dynamoKeyAttr),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, chunkerr.BackendFailure(err, "scanning dynamodb table")
		}
		for _, item := range page.Items {
			if v, ok := item[dynamoKeyAttr].(*types.AttributeValueMemberS); ok {
				keys = append(keys, v.Value)
			}
		}
	}
	sort.Strings(keys)
	return newSliceIterator(keys), nil
}

func (p *DynamoProvider) Len(ctx context.Context) (int, error) {
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

// Flush is a no-op: DynamoDB writes are durable once PutItem/DeleteItem
// return.
func (p *DynamoProvider) Flush(_ context.Context) error {
	return nil
}
