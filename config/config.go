/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package config contains the configuration of an EliasGraph server.
*/
package config

import (
	"fmt"
	"strconv"

	"devt.de/krotik/common/errorutil"
	"devt.de/krotik/common/fileutil"
)

// Global variables
// ================

/*
ProductVersion is the current version of EliasGraph
*/
const ProductVersion = "1.0.0"

/*
DefaultConfigFile is the default config file which will be used to configure EliasGraph
*/
var DefaultConfigFile = "eliasgraph.config.json"

/*
Known configuration options for EliasGraph
*/
const (
	LocationSnapshots   = "LocationSnapshots"
	SnapshotStorage     = "SnapshotStorage"
	SnapshotCompression = "SnapshotCompression"
	CompactOnReload     = "CompactOnReload"
	EnableReadOnly      = "EnableReadOnly"
	LogLevel            = "LogLevel"
	EventFeedAddress    = "EventFeedAddress"
	MinioEndpoint       = "MinioEndpoint"
	MinioAccessKey      = "MinioAccessKey"
	MinioSecretKey      = "MinioSecretKey"
	MinioUseSSL         = "MinioUseSSL"
	SnapshotBucket      = "SnapshotBucket"
	SnapshotPrefix      = "SnapshotPrefix"
	S3Region            = "S3Region"
	LockFile            = "LockFile"
)

/*
Supported snapshot storages
*/
const (
	StorageMemory = "memory"
	StorageDisk   = "disk"
	StorageMinio  = "minio"
	StorageS3     = "s3"
)

/*
DefaultConfig is the defaut configuration
*/
var DefaultConfig = map[string]interface{}{
	LocationSnapshots:   "snapshots",
	SnapshotStorage:     StorageDisk,
	SnapshotCompression: "lz4",
	CompactOnReload:     true,
	EnableReadOnly:      false,
	LogLevel:            "info",
	EventFeedAddress:    "localhost:9091",
	MinioEndpoint:       "localhost:9000",
	MinioAccessKey:      "",
	MinioSecretKey:      "",
	MinioUseSSL:         false,
	SnapshotBucket:      "eliasgraph",
	SnapshotPrefix:      "snapshots",
	S3Region:            "",
	LockFile:            "eliasgraph.lck",
}

/*
Config is the actual config which is used
*/
var Config map[string]interface{}

/*
LoadConfigFile loads a given config file. If the config file does not exist it is
created with the default options.
*/
func LoadConfigFile(configfile string) error {
	var err error

	Config, err = fileutil.LoadConfig(configfile, DefaultConfig)

	return err
}

/*
LoadDefaultConfig loads the default configuration.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{})
	for k, v := range DefaultConfig {
		data[k] = v
	}

	Config = data
}

// Helper functions
// ================

/*
Str reads a config value as a string value.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int value.
*/
func Int(key string) int64 {
	ret, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a boolean value.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}
