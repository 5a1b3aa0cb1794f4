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

import "fmt"

// ValidateCatalogItem validates a CatalogItem according to domain rules.
//
// Validation rules:
//   - Kind must be paper or repository
//   - Title and SourceURL must not be empty
//   - Analysis.Summary must not be empty
//   - Both scores must be within [0, 10]
//
// NOT validated:
//   - Embedding (items without one fall back to tag similarity)
//   - Id and Revision (populated by the store)
//   - IngestedAt (populated on first upsert)
func ValidateCatalogItem(item *CatalogItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}

	if err := ValidateItemKind(item.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}

	if item.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyTitle)
	}

	if item.SourceURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptySourceURL)
	}

	if item.Analysis.Summary == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptySummary)
	}

	if !isValidScore(item.Analysis.RelevancyScore) {
		return fmt.Errorf("%w: relevancy %v: %w", ErrInvalidItem, item.Analysis.RelevancyScore, ErrScoreOutOfRange)
	}

	if !isValidScore(item.Analysis.InterestingScore) {
		return fmt.Errorf("%w: interesting %v: %w", ErrInvalidItem, item.Analysis.InterestingScore, ErrScoreOutOfRange)
	}

	return nil
}

// ValidateItemKind validates that an ItemKind has a valid value.
func ValidateItemKind(kind ItemKind) error {
	if kind != KindPaper && kind != KindRepository {
		return fmt.Errorf("%w: value %d", ErrInvalidKind, kind)
	}
	return nil
}

func isValidScore(s float64) bool {
	return s >= 0 && s <= 10
}
