package core

import (
	"errors"
	"testing"
)

func validItem() *CatalogItem {
	return &CatalogItem{
		Kind:      KindPaper,
		Title:     "Attention Is All You Need",
		SourceURL: "https://arxiv.org/abs/1706.03762",
		Analysis: Analysis{
			Summary:          "Introduces the transformer architecture.",
			Tags:             []string{"transformers", "attention"},
			RelevancyScore:   9.5,
			InterestingScore: 9.0,
		},
	}
}

func TestValidateCatalogItem(t *testing.T) {
	if err := ValidateCatalogItem(validItem()); err != nil {
		t.Fatalf("Expected valid item, got %v", err)
	}
}

func TestValidateCatalogItemRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CatalogItem)
		want   error
	}{
		{"missing kind", func(i *CatalogItem) { i.Kind = 0 }, ErrInvalidKind},
		{"empty title", func(i *CatalogItem) { i.Title = "" }, ErrEmptyTitle},
		{"empty source", func(i *CatalogItem) { i.SourceURL = "" }, ErrEmptySourceURL},
		{"empty summary", func(i *CatalogItem) { i.Analysis.Summary = "" }, ErrEmptySummary},
		{"relevancy too high", func(i *CatalogItem) { i.Analysis.RelevancyScore = 10.5 }, ErrScoreOutOfRange},
		{"relevancy negative", func(i *CatalogItem) { i.Analysis.RelevancyScore = -1 }, ErrScoreOutOfRange},
		{"interesting too high", func(i *CatalogItem) { i.Analysis.InterestingScore = 11 }, ErrScoreOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(item)

			err := ValidateCatalogItem(item)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrInvalidItem) {
				t.Fatalf("Expected ErrInvalidItem, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateCatalogItemNil(t *testing.T) {
	if err := ValidateCatalogItem(nil); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("Expected ErrInvalidItem for nil item, got %v", err)
	}
}

func TestValidateScoreBoundaries(t *testing.T) {
	item := validItem()
	item.Analysis.RelevancyScore = 0
	item.Analysis.InterestingScore = 10
	if err := ValidateCatalogItem(item); err != nil {
		t.Fatalf("Boundary scores should be valid, got %v", err)
	}
}
