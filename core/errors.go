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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidItem indicates a CatalogItem failed validation.
	ErrInvalidItem = errors.New("invalid catalog item")

	// ErrInvalidKind indicates an unrecognized item kind.
	ErrInvalidKind = errors.New("invalid item kind")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptySourceURL indicates the SourceURL field is empty.
	ErrEmptySourceURL = errors.New("source URL cannot be empty")

	// ErrEmptySummary indicates the analysis Summary field is empty.
	ErrEmptySummary = errors.New("analysis summary cannot be empty")

	// ErrScoreOutOfRange indicates a relevancy or interesting score
	// outside the [0, 10] range.
	ErrScoreOutOfRange = errors.New("score out of range [0, 10]")

	// ErrInvalidQuery indicates an empty search or theory text.
	ErrInvalidQuery = errors.New("invalid query: empty text")
)
