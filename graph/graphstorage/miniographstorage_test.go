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
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"devt.de/krotik/eliasgraph/graph/util"
	"github.com/stretchr/testify/require"
)

/*
TestMinioGraphStorage requires a running MinIO instance. The endpoint can be
set with the MINIO_ENDPOINT environment variable.
*/
func TestMinioGraphStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := NewMinioClient(endpoint, "minioadmin", "minioadmin", false)
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	mgs, err := NewMinioGraphStorage(ctx, client, "eliasgraph-test", "snapshots")
	require.NoError(t, err)
	require.Equal(t, "minio://eliasgraph-test/snapshots", mgs.Name())

	require.NoError(t, mgs.StoreSnapshot(ctx, "main", []byte("EGSN")))

	data, err := mgs.LoadSnapshot(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, "EGSN", string(data))

	names, err := mgs.Snapshots(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "main")

	require.NoError(t, mgs.RemoveSnapshot(ctx, "main"))
	require.NoError(t, mgs.RemoveSnapshot(ctx, "main"))

	_, err = mgs.LoadSnapshot(ctx, "main")
	require.True(t, errors.Is(err, util.ErrNotFound))

	require.NoError(t, mgs.Close())
}
