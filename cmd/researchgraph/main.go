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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/researchgraph"
	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/ai/openai"
	"github.com/poiesic/researchgraph/core"
	"github.com/poiesic/researchgraph/reindex"
	"github.com/poiesic/researchgraph/search"
	"github.com/poiesic/researchgraph/similarity"
	"github.com/poiesic/researchgraph/storage/badger"
	"github.com/poiesic/researchgraph/theory"
)

var aiFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "embedding-host",
		Usage: "Embedding service host URL",
		Value: "http://localhost:11434/v1",
	},
	&cli.StringFlag{
		Name:  "embedding-model",
		Usage: "Embedding model name",
		Value: "embeddinggemma",
	},
	&cli.StringFlag{
		Name:  "classifier-host",
		Usage: "Classifier service host URL (defaults to embedding-host)",
	},
	&cli.StringFlag{
		Name:  "classifier-model",
		Usage: "Classifier model name",
		Value: "qwen2.5:3b",
	},
}

func main() {
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}

	app := &cli.App{
		Name:  "researchgraph",
		Usage: "Catalog of analyzed research papers and repositories",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest analyzed items from a JSON file (array of items)",
				ArgsUsage: "<items.json>",
				Action:    ingestCommand,
				Flags:     append([]cli.Flag{dbFlag}, aiFlags...),
			},
			{
				Name:      "search",
				Usage:     "Search the catalog",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (text or semantic)",
						Value: "text",
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Restrict results to one kind (paper or repository)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
				}, aiFlags...),
			},
			{
				Name:      "theory",
				Usage:     "Evaluate a theory against the catalog's evidence",
				ArgsUsage: "<theory>",
				Action:    theoryCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Restrict evidence to one kind (paper or repository)",
					},
					&cli.IntFlag{
						Name:  "max-items",
						Usage: "Maximum number of items to judge",
						Value: 10,
					},
					&cli.DurationFlag{
						Name:  "classify-timeout",
						Usage: "Per-item stance classification deadline",
						Value: 30 * time.Second,
					},
				}, aiFlags...),
			},
			{
				Name:   "list",
				Usage:  "List catalogued items, newest first",
				Action: listCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Restrict listing to one kind (paper or repository)",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of items to skip",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of items to list",
						Value: 50,
					},
				},
			},
			{
				Name:      "neighbors",
				Usage:     "Show the most similar items to one item",
				ArgsUsage: "<item-id>",
				Action:    neighborsCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of neighbors to show",
						Value: 10,
					},
				},
			},
			{
				Name:   "graph",
				Usage:  "Print the cluster structure of the similarity graph",
				Action: graphCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum edge weight for clustering",
						Value: similarity.DefaultMinEdgeWeight,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print catalog statistics",
				Action: statsCommand,
				Flags:  []cli.Flag{dbFlag},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed all items and rebuild the similarity graph",
				Action: reindexCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of items to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N items",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				}, aiFlags...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// aiConfigFromFlags builds the AI configuration shared by subcommands.
// Unset flags keep the defaults, so commands that never call out to the
// AI services work without the flags defined.
func aiConfigFromFlags(c *cli.Context) *ai.Config {
	var opts []ai.ConfigOption

	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, ai.WithEmbeddingHost(host))
	}
	if model := c.String("embedding-model"); model != "" {
		opts = append(opts, ai.WithEmbeddingModel(model))
	}

	classifierHost := c.String("classifier-host")
	if classifierHost == "" {
		classifierHost = c.String("embedding-host")
	}
	if classifierHost != "" {
		opts = append(opts, ai.WithClassifierHost(classifierHost))
	}
	if model := c.String("classifier-model"); model != "" {
		opts = append(opts, ai.WithClassifierModel(model))
	}

	return ai.NewConfig(opts...)
}

func openDatabase(c *cli.Context) (*researchgraph.Database, error) {
	return researchgraph.NewDatabase(c.String("db"),
		researchgraph.WithAIConfig(aiConfigFromFlags(c)))
}

// ingestItem matches the JSON shape produced by the analysis pipeline.
type ingestItem struct {
	Kind              string    `json:"kind"`
	Title             string    `json:"title"`
	SourceURL         string    `json:"source_url"`
	RawExcerpt        string    `json:"raw_excerpt"`
	Summary           string    `json:"summary"`
	Tags              []string  `json:"tags"`
	QuestionsAnswered []string  `json:"questions_answered"`
	KeyFindings       []string  `json:"key_findings"`
	RelevancyScore    float64   `json:"relevancy_score"`
	InterestingScore  float64   `json:"interesting_score"`
	Embedding         []float32 `json:"embedding,omitempty"`
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one JSON file argument")
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var raw []ingestItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	gateway, err := db.NewGateway()
	if err != nil {
		return err
	}

	ctx := context.Background()
	ingested := 0
	for _, entry := range raw {
		kind, err := core.ParseItemKind(entry.Kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", entry.Title, err)
			continue
		}

		item := &core.CatalogItem{
			Kind:       kind,
			Title:      entry.Title,
			SourceURL:  entry.SourceURL,
			RawExcerpt: entry.RawExcerpt,
			Analysis: core.Analysis{
				Summary:           entry.Summary,
				Tags:              entry.Tags,
				QuestionsAnswered: entry.QuestionsAnswered,
				KeyFindings:       entry.KeyFindings,
				RelevancyScore:    entry.RelevancyScore,
				InterestingScore:  entry.InterestingScore,
			},
			Embedding: entry.Embedding,
		}

		stored, err := gateway.Ingest(ctx, item)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", entry.Title, err)
			continue
		}
		ingested++
		fmt.Printf("%d  %s  %s\n", stored.Id, stored.Kind, stored.Title)
	}

	fmt.Fprintf(os.Stderr, "Ingested %d of %d items\n", ingested, len(raw))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}

	mode, err := search.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	var kind core.ItemKind
	if kindStr := c.String("kind"); kindStr != "" {
		parsed, err := core.ParseItemKind(kindStr)
		if err != nil {
			return err
		}
		kind = parsed
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	results, err := db.SearchEngine().Search(context.Background(), c.Args().First(), mode, kind, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, result := range results {
		fmt.Printf("%.3f  %d  %s  %s\n",
			result.Score, result.Item.Id, result.Item.Kind, result.Item.Title)
	}

	if len(results) < search.DefaultSparseThreshold {
		suggestions, err := db.SearchEngine().SuggestSparse(context.Background(), c.Args().First())
		if err == nil {
			fmt.Println()
			for _, s := range suggestions {
				fmt.Printf("  %s\n", s)
			}
		}
	}

	return nil
}

func theoryCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one theory argument")
	}

	var kind core.ItemKind
	if kindStr := c.String("kind"); kindStr != "" {
		parsed, err := core.ParseItemKind(kindStr)
		if err != nil {
			return err
		}
		kind = parsed
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	evaluator, err := db.NewEvaluator(theory.WithClassifyTimeout(c.Duration("classify-timeout")))
	if err != nil {
		return err
	}

	verdict, err := evaluator.Evaluate(context.Background(), c.Args().First(), kind, c.Int("max-items"))
	if err != nil {
		return err
	}

	printJudgments := func(label string, judgments []core.StanceJudgment) {
		if len(judgments) == 0 {
			return
		}
		fmt.Printf("%s:\n", label)
		for _, j := range judgments {
			fmt.Printf("  %.2f  %d  %s\n", j.Confidence, j.ItemId, j.Title)
		}
	}

	printJudgments("Agree", verdict.Agree)
	printJudgments("Disagree", verdict.Disagree)
	printJudgments("Uncertain", verdict.Uncertain)

	if len(verdict.Suggestions) > 0 {
		fmt.Println("Suggestions:")
		for _, s := range verdict.Suggestions {
			fmt.Printf("  %s\n", s)
		}
	}

	return nil
}

func listCommand(c *cli.Context) error {
	var kind core.ItemKind
	if kindStr := c.String("kind"); kindStr != "" {
		parsed, err := core.ParseItemKind(kindStr)
		if err != nil {
			return err
		}
		kind = parsed
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	items, err := db.ItemRepository().List(context.Background(), kind, c.Int("offset"), c.Int("limit"))
	if err != nil {
		return err
	}

	for _, item := range items {
		fmt.Printf("%d  %s  %s  %s\n",
			item.Id, item.IngestedAt.Format("2006-01-02"), item.Kind, item.Title)
	}
	fmt.Fprintf(os.Stderr, "%d items\n", len(items))

	return nil
}

func neighborsCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one item ID argument")
	}

	var id core.ID
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil {
		return fmt.Errorf("invalid item ID %q: %w", c.Args().First(), err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	neighbors, err := db.Index().Neighbors(context.Background(), id, c.Int("k"))
	if err != nil {
		return err
	}

	for _, n := range neighbors {
		fmt.Printf("%.3f  %s  %d  %s\n", n.Weight, n.Method, n.Item.Id, n.Item.Title)
	}

	return nil
}

func graphCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	snapshot, err := db.GraphSnapshot(context.Background(), c.Float64("threshold"))
	if err != nil {
		return err
	}

	titles := make(map[core.ID]string, len(snapshot.Items))
	for _, item := range snapshot.Items {
		titles[item.Id] = item.Title
	}

	if snapshot.Stale {
		fmt.Fprintln(os.Stderr, "warning: similarity index is behind the store; clusters may lag")
	}

	for i, cluster := range snapshot.Clusters {
		fmt.Printf("Cluster %d (%d items):\n", i+1, len(cluster.Members))
		for _, id := range cluster.Members {
			fmt.Printf("  %d  %s\n", id, titles[id])
		}
	}
	fmt.Printf("%d clusters, %d edges at threshold %.2f\n",
		len(snapshot.Clusters), len(snapshot.Edges), c.Float64("threshold"))

	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	stats, err := db.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Items:          %d (%d papers, %d repositories)\n",
		stats.Items.TotalItems, stats.Items.TotalPapers, stats.Items.TotalRepos)
	fmt.Printf("Avg relevancy:  %.2f\n", stats.Items.AvgRelevancy)
	fmt.Printf("Avg interest:   %.2f\n", stats.Items.AvgInteresting)
	fmt.Printf("Edges:          %d\n", stats.EdgeCount)
	fmt.Printf("Revision:       %d\n", stats.Revision)
	if stats.IndexStale {
		fmt.Println("Index:          stale (catching up)")
	} else {
		fmt.Println("Index:          current")
	}

	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	dbPath := c.String("db")
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	itemRepo, err := badger.NewItemRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer itemRepo.Close()

	edgeRepo := badger.NewEdgeRepository(backend)

	aiConfig := aiConfigFromFlags(c)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	index, err := similarity.NewIndex(itemRepo, edgeRepo)
	if err != nil {
		return err
	}

	rebuildConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if rebuildConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rebuildConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if rebuildConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	rebuilder, err := reindex.NewRebuilder(itemRepo, embedder, index, rebuildConfig, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := rebuilder.Run(ctx); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
