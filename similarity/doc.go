// Copyright 2025 Poiesic Systems
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


// Package similarity maintains the pairwise similarity graph over the
// catalog and derives cluster snapshots from it.
//
// The Index compares each updated item against every stored item, using
// embedding cosine when both sides carry vectors and tag Jaccard overlap
// otherwise, and persists edges at or above a configurable weight floor.
// It is the only writer of the edge repository; deferred mode routes
// updates through a single-worker pool to preserve that discipline.
//
// The ClusterView groups items into connected components of the edge
// graph at a caller-chosen threshold. Snapshots are recomputed on demand
// and flag themselves stale when the store revision has moved past the
// index's applied revision.
package similarity
