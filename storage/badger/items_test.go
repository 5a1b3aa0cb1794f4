package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/storage"
)

func testItem(kind core.ItemKind, url, title string) *core.CatalogItem {
	return &core.CatalogItem{
		Id:        core.ItemID(kind, url),
		Kind:      kind,
		Title:     title,
		SourceURL: core.NormalizeSourceURL(kind, url),
		Analysis: core.Analysis{
			Summary:          "summary of " + title,
			Tags:             []string{"go", "storage"},
			RelevancyScore:   7,
			InterestingScore: 6,
		},
	}
}

func TestItemUpsertAndGet(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()

	item := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00001", "First Paper")
	stored, err := itemRepo.Upsert(ctx, item)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	if stored.Revision == 0 {
		t.Fatal("Expected non-zero revision")
	}
	if stored.IngestedAt.IsZero() {
		t.Fatal("Expected IngestedAt to be populated")
	}

	retrieved, err := itemRepo.Get(ctx, item.Id)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if retrieved.Title != "First Paper" {
		t.Fatalf("Expected 'First Paper', got %q", retrieved.Title)
	}
	if retrieved.Analysis.Summary != item.Analysis.Summary {
		t.Fatal("Analysis should survive the round trip")
	}
}

func TestItemGetNotFound(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	_, err = itemRepo.Get(context.Background(), 12345)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestItemUpsertPreservesIngestedAt(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()

	item := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00002", "Original")
	first, err := itemRepo.Upsert(ctx, item)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	firstIngested := first.IngestedAt
	firstRevision := first.Revision

	updated := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00002", "Revised Title")
	second, err := itemRepo.Upsert(ctx, updated)
	if err != nil {
		t.Fatalf("Failed to re-upsert: %v", err)
	}

	if !second.IngestedAt.Equal(firstIngested) {
		t.Fatalf("Expected IngestedAt preserved, got %v then %v", firstIngested, second.IngestedAt)
	}
	if second.Revision <= firstRevision {
		t.Fatalf("Expected revision to advance past %d, got %d", firstRevision, second.Revision)
	}

	retrieved, err := itemRepo.Get(ctx, item.Id)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if retrieved.Title != "Revised Title" {
		t.Fatalf("Expected replacement to win, got %q", retrieved.Title)
	}
}

func TestItemRevisionMonotonic(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		item := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00003", "Same Source")
		stored, err := itemRepo.Upsert(ctx, item)
		if err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
		if stored.Revision <= last {
			t.Fatalf("Revision %d did not advance past %d", stored.Revision, last)
		}
		last = stored.Revision
	}

	if itemRepo.Revision() != last {
		t.Fatalf("Expected repository revision %d, got %d", last, itemRepo.Revision())
	}
}

func TestItemListOrderAndFilter(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	older := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00010", "Older Paper")
	older.IngestedAt = now.Add(-2 * time.Hour)
	newer := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00011", "Newer Paper")
	newer.IngestedAt = now.Add(-1 * time.Hour)
	repo := testItem(core.KindRepository, "https://github.com/golang/go", "Go Repo")
	repo.IngestedAt = now

	for _, item := range []*core.CatalogItem{older, newer, repo} {
		if _, err := itemRepo.Upsert(ctx, item); err != nil {
			t.Fatalf("Failed to upsert %q: %v", item.Title, err)
		}
	}

	all, err := itemRepo.List(ctx, 0, 0, 10)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(all))
	}
	if all[0].Title != "Go Repo" || all[1].Title != "Newer Paper" || all[2].Title != "Older Paper" {
		t.Fatalf("Expected newest-first order, got %q, %q, %q", all[0].Title, all[1].Title, all[2].Title)
	}

	papers, err := itemRepo.List(ctx, core.KindPaper, 0, 10)
	if err != nil {
		t.Fatalf("Failed to list papers: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("Expected 2 papers, got %d", len(papers))
	}

	paged, err := itemRepo.List(ctx, 0, 1, 1)
	if err != nil {
		t.Fatalf("Failed to list page: %v", err)
	}
	if len(paged) != 1 || paged[0].Title != "Newer Paper" {
		t.Fatalf("Expected offset 1 to land on 'Newer Paper', got %v", paged)
	}
}

func TestItemExistsBySource(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()

	item := testItem(core.KindRepository, "https://github.com/dgraph-io/badger", "Badger")
	if _, err := itemRepo.Upsert(ctx, item); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	// A messier form of the same URL must still be found.
	id, found, err := itemRepo.ExistsBySource(ctx, core.KindRepository, "https://github.com/dgraph-io/badger/tree/main")
	if err != nil {
		t.Fatalf("Failed to check source: %v", err)
	}
	if !found {
		t.Fatal("Expected source to exist")
	}
	if id != item.Id {
		t.Fatalf("Expected ID %d, got %d", item.Id, id)
	}

	_, found, err = itemRepo.ExistsBySource(ctx, core.KindRepository, "https://github.com/unknown/repo")
	if err != nil {
		t.Fatalf("Failed to check source: %v", err)
	}
	if found {
		t.Fatal("Expected unknown source to be absent")
	}
}

func TestItemDelete(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()

	item := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00020", "To Delete")
	if _, err := itemRepo.Upsert(ctx, item); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	if err := itemRepo.Delete(ctx, item.Id); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	if _, err := itemRepo.Get(ctx, item.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	_, found, err := itemRepo.ExistsBySource(ctx, core.KindPaper, item.SourceURL)
	if err != nil {
		t.Fatalf("Failed to check source: %v", err)
	}
	if found {
		t.Fatal("Expected source index entry removed")
	}

	list, err := itemRepo.List(ctx, 0, 0, 10)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("Expected empty list after delete, got %d items", len(list))
	}

	if err := itemRepo.Delete(ctx, item.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestItemStats(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()

	paper := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00030", "Paper")
	paper.Analysis.RelevancyScore = 8
	paper.Analysis.InterestingScore = 6
	repo := testItem(core.KindRepository, "https://github.com/golang/go", "Repo")
	repo.Analysis.RelevancyScore = 4
	repo.Analysis.InterestingScore = 10

	for _, item := range []*core.CatalogItem{paper, repo} {
		if _, err := itemRepo.Upsert(ctx, item); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
	}

	stats, err := itemRepo.Stats(ctx)
	if err != nil {
		t.Fatalf("Failed to compute stats: %v", err)
	}

	if stats.TotalItems != 2 || stats.TotalPapers != 1 || stats.TotalRepos != 1 {
		t.Fatalf("Unexpected counts: %+v", stats)
	}
	if stats.AvgRelevancy != 6 {
		t.Fatalf("Expected avg relevancy 6, got %v", stats.AvgRelevancy)
	}
	if stats.AvgInteresting != 8 {
		t.Fatalf("Expected avg interesting 8, got %v", stats.AvgInteresting)
	}
}

func TestItemUpsertRejectsIDCollision(t *testing.T) {
	itemRepo, edgeRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { edgeRepo.Close(); itemRepo.Close(); backend.Close() }()

	ctx := context.Background()

	original := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00040", "Original")
	if _, err := itemRepo.Upsert(ctx, original); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	// Same ID bound to a different source must not replace the record.
	impostor := testItem(core.KindPaper, "https://arxiv.org/abs/2401.00041", "Impostor")
	impostor.Id = original.Id
	if _, err := itemRepo.Upsert(ctx, impostor); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	kept, err := itemRepo.Get(ctx, original.Id)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if kept.Title != "Original" || kept.SourceURL != original.SourceURL {
		t.Fatalf("Collision overwrote the stored item: %+v", kept)
	}

	// Re-upserting the same source is still a plain replacement.
	original.Title = "Original, revised"
	if _, err := itemRepo.Upsert(ctx, original); err != nil {
		t.Fatalf("Failed to re-upsert same source: %v", err)
	}
}
