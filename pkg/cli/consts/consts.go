/* Copyright 2025 BobbySync Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package consts provides definitions of constants
package consts

var (
	// BobbySyncDirName is the name of the directory containing bobbysync files
	BobbySyncDirName = "bobbysync"
	// BobbySyncDBFileName is a filename for the local SQLite database
	BobbySyncDBFileName = "bobbysync.db"
	// ConfigFilename is the name of the config file
	ConfigFilename = "bobbysyncrc"

	// SystemDeviceID is the key for the id of this device
	SystemDeviceID = "device_id"
	// SystemLastVersion is the key for the highest log version applied locally
	SystemLastVersion = "last_version"
	// SystemSnapshotHydrated is the key for whether the tree was hydrated from a snapshot
	SystemSnapshotHydrated = "snapshot_hydrated"
	// SystemConflictContainerID is the key for the local id of the conflict container
	SystemConflictContainerID = "conflict_container_id"
	// SystemLastSyncAt is the timestamp of the last successful sync
	SystemLastSyncAt = "last_sync_at"
	// SystemInitializedAt is the timestamp of the first run
	SystemInitializedAt = "initialized_at"
)
