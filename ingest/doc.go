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


// Package ingest is the write path into the catalog.
//
// The Gateway validates, deduplicates, and persists analyzed items, then
// triggers the similarity index update. Loops poll discovery sources on
// an interval and push each batch through the gateway; item failures are
// logged and counted without stopping the feed.
package ingest
