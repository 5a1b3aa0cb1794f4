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


// Package storage defines the persistence interfaces for the research
// catalog: an item repository and an edge repository, both backed by flat
// key-value records with MUS serialization.
//
// Storage backends implement these interfaces; see the badger subpackage
// for the BadgerDB implementation. The item repository owns catalog item
// lifetime, the edge repository holds the similarity edge list written
// exclusively by the similarity index.
package storage
