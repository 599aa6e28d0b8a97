/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphstorage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"devt.de/krotik/eliasgraph/graph/util"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

/*
S3Client is the part of the S3 API which is used by S3GraphStorage.
*/
type S3Client interface {
	s3.ListObjectsV2APIClient

	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

/*
S3GraphStorage stores snapshots as objects in an S3 bucket.
*/
type S3GraphStorage struct {
	client S3Client // S3 client
	bucket string   // Bucket which holds the snapshots
	prefix string   // Key prefix for all snapshots
}

/*
NewS3Client creates an S3 client from the default AWS configuration
(environment, shared config files) for a given region.
*/
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	return s3.NewFromConfig(cfg), nil
}

/*
NewS3GraphStorage creates a new S3GraphStorage instance.
*/
func NewS3GraphStorage(client S3Client, bucket string, prefix string) *S3GraphStorage {
	return &S3GraphStorage{client, bucket, prefix}
}

/*
Name returns the name of the S3GraphStorage instance.
*/
func (sgs *S3GraphStorage) Name() string {
	return "s3://" + path.Join(sgs.bucket, sgs.prefix)
}

/*
key returns the object key of the snapshot of a graph.
*/
func (sgs *S3GraphStorage) key(graph string) string {
	return path.Join(sgs.prefix, graph+SnapshotExtension)
}

/*
StoreSnapshot stores the snapshot of a graph.
*/
func (sgs *S3GraphStorage) StoreSnapshot(ctx context.Context, graph string, data []byte) error {
	_, err := sgs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(sgs.bucket),
		Key:           aws.String(sgs.key(graph)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})

	if err != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return nil
}

/*
LoadSnapshot loads the snapshot of a graph.
*/
func (sgs *S3GraphStorage) LoadSnapshot(ctx context.Context, graph string) ([]byte, error) {
	resp, err := sgs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sgs.bucket),
		Key:    aws.String(sgs.key(graph)),
	})

	if err != nil {
		if isS3NotFound(err) {
			return nil, snapshotNotFound(sgs.Name(), graph)
		}
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	return data, nil
}

/*
RemoveSnapshot removes the snapshot of a graph.
*/
func (sgs *S3GraphStorage) RemoveSnapshot(ctx context.Context, graph string) error {
	_, err := sgs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(sgs.bucket),
		Key:    aws.String(sgs.key(graph)),
	})

	if err != nil && !isS3NotFound(err) {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return nil
}

/*
Snapshots returns the names of all graphs which have a snapshot.
*/
func (sgs *S3GraphStorage) Snapshots(ctx context.Context) ([]string, error) {
	var keys []string

	prefix := sgs.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(sgs.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(sgs.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
		}

		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return graphNames(prefix, keys), nil
}

/*
Close closes the storage.
*/
func (sgs *S3GraphStorage) Close() error {
	return nil
}

/*
isS3NotFound checks if an error means that an object does not exist.
*/
func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound

	return errors.As(err, &nsk) || errors.As(err, &nf)
}
