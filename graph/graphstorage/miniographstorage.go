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
	"io"
	"path"
	"sort"
	"strings"

	"devt.de/krotik/eliasgraph/graph/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

/*
MinioGraphStorage stores snapshots as objects in a MinIO bucket.
*/
type MinioGraphStorage struct {
	client *minio.Client // MinIO client
	bucket string        // Bucket which holds the snapshots
	prefix string        // Key prefix for all snapshots
}

/*
NewMinioClient creates a MinIO client with static credentials.
*/
func NewMinioClient(endpoint string, accessKey string, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	return client, nil
}

/*
NewMinioGraphStorage creates a new MinioGraphStorage instance. The bucket is
created if it does not exist.
*/
func NewMinioGraphStorage(ctx context.Context, client *minio.Client, bucket string, prefix string) (*MinioGraphStorage, error) {
	exists, err := client.BucketExists(ctx, bucket)

	if err == nil && !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}

	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	return &MinioGraphStorage{client, bucket, prefix}, nil
}

/*
Name returns the name of the MinioGraphStorage instance.
*/
func (mgs *MinioGraphStorage) Name() string {
	return "minio://" + path.Join(mgs.bucket, mgs.prefix)
}

/*
key returns the object key of the snapshot of a graph.
*/
func (mgs *MinioGraphStorage) key(graph string) string {
	return path.Join(mgs.prefix, graph+SnapshotExtension)
}

/*
StoreSnapshot stores the snapshot of a graph.
*/
func (mgs *MinioGraphStorage) StoreSnapshot(ctx context.Context, graph string, data []byte) error {
	_, err := mgs.client.PutObject(ctx, mgs.bucket, mgs.key(graph), bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{ContentType: "application/octet-stream"})

	if err != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return nil
}

/*
LoadSnapshot loads the snapshot of a graph.
*/
func (mgs *MinioGraphStorage) LoadSnapshot(ctx context.Context, graph string) ([]byte, error) {
	obj, err := mgs.client.GetObject(ctx, mgs.bucket, mgs.key(graph), minio.GetObjectOptions{})

	if err == nil {
		defer obj.Close()

		var data []byte

		if data, err = io.ReadAll(obj); err == nil {
			return data, nil
		}
	}

	if isMinioNotFound(err) {
		return nil, snapshotNotFound(mgs.Name(), graph)
	}

	return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
}

/*
RemoveSnapshot removes the snapshot of a graph.
*/
func (mgs *MinioGraphStorage) RemoveSnapshot(ctx context.Context, graph string) error {
	err := mgs.client.RemoveObject(ctx, mgs.bucket, mgs.key(graph), minio.RemoveObjectOptions{})

	if err != nil && !isMinioNotFound(err) {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}

	return nil
}

/*
Snapshots returns the names of all graphs which have a snapshot.
*/
func (mgs *MinioGraphStorage) Snapshots(ctx context.Context) ([]string, error) {
	var keys []string

	prefix := mgs.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	for obj := range mgs.client.ListObjects(ctx, mgs.bucket, minio.ListObjectsOptions{
		Prefix: prefix,
	}) {
		if obj.Err != nil {
			return nil, &util.GraphError{Type: util.ErrReading, Detail: obj.Err.Error()}
		}
		keys = append(keys, obj.Key)
	}

	return graphNames(prefix, keys), nil
}

/*
Close closes the storage.
*/
func (mgs *MinioGraphStorage) Close() error {
	return nil
}

/*
isMinioNotFound checks if an error means that an object does not exist.
*/
func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

/*
graphNames extracts the graph names from a list of object keys.
*/
func graphNames(prefix string, keys []string) []string {
	ret := make([]string, 0, len(keys))

	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)

		if strings.HasSuffix(name, SnapshotExtension) && !strings.Contains(name, "/") {
			if name = strings.TrimSuffix(name, SnapshotExtension); name != "" {
				ret = append(ret, name)
			}
		}
	}

	sort.Strings(ret)

	return ret
}
