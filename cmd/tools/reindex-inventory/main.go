// cmd/tools/reindex-inventory/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"sales-orchestrator/internal/common/config"
	"sales-orchestrator/internal/common/database"
	"sales-orchestrator/internal/common/llm"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/sales/matching"
	"sales-orchestrator/internal/sales/semanticindex"
	"sales-orchestrator/internal/storage/inventory"
	"sales-orchestrator/internal/storage/leads"
	"sales-orchestrator/internal/storage/vectorindex"
)

type toolkit struct {
	inventory *inventory.Repository
	index     *semanticindex.Service
	matcher   *matching.Matcher
	log       logger.Logger
}

func main() {
	reindexCmd := flag.NewFlagSet("reindex", flag.ExitOnError)
	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	matchCmd := flag.NewFlagSet("match", flag.ExitOnError)

	// Reindex command flags
	idReindex := reindexCmd.String("id", "", "Vehicle ID to reindex (default: all vehicles)")

	// Search command flags
	query := searchCmd.String("q", "", "Free-text query (e.g., \"SUV familiar económica\")")
	limit := searchCmd.Int("limit", 0, "Maximum number of matches (default from config)")

	// Match command flags
	idMatch := matchCmd.String("id", "", "Vehicle ID to match against leads")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "reindex":
		reindexCmd.Parse(os.Args[2:])
		tk := mustToolkit(ctx)
		n, err := tk.reindex(ctx, *idReindex)
		if err != nil {
			fmt.Printf("Error reindexing: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d vehicle(s)\n", n)

	case "search":
		searchCmd.Parse(os.Args[2:])
		if *query == "" {
			fmt.Println("Error: q is required for search.")
			searchCmd.Usage()
			os.Exit(1)
		}
		tk := mustToolkit(ctx)
		hits, err := tk.index.Query(ctx, *query, *limit)
		if err != nil {
			fmt.Printf("Error searching: %v\n", err)
			os.Exit(1)
		}
		printJSON(semanticindex.Matches(hits))

	case "match":
		matchCmd.Parse(os.Args[2:])
		if *idMatch == "" {
			fmt.Println("Error: id is required for match.")
			matchCmd.Usage()
			os.Exit(1)
		}
		tk := mustToolkit(ctx)
		matches, err := tk.match(ctx, *idMatch)
		if err != nil {
			fmt.Printf("Error matching: %v\n", err)
			os.Exit(1)
		}
		printJSON(matches)

	case "help":
		fallthrough
	default:
		help()
	}
}

func mustToolkit(ctx context.Context) *toolkit {
	tk, err := newToolkit(ctx)
	if err != nil {
		fmt.Printf("Error initializing: %v\n", err)
		os.Exit(1)
	}
	return tk
}

func newToolkit(ctx context.Context) (*toolkit, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewStructured(cfg.Logging.Level, "console")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return nil, err
	}

	var vectors vectorindex.Store
	if cfg.VectorIndex.Backend == "memory" {
		vectors = vectorindex.NewMemoryStore(cfg.VectorIndex.Dimensions)
	} else {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		store := vectorindex.NewElasticsearchStore(es.Client, cfg.VectorIndex.Index, cfg.VectorIndex.Dimensions)
		if err := store.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		vectors = store
	}

	embedder, err := llm.NewEmbedder(ctx, cfg.GenAI)
	if err != nil {
		return nil, err
	}

	return &toolkit{
		inventory: inventory.NewRepository(pg.DB, rdb.Client, config.GetDuration(cfg.Inventory.CacheTTL), log),
		index:     semanticindex.NewService(embedder, vectors, cfg.VectorIndex.DefaultLimit, log),
		matcher:   matching.NewMatcher(leads.NewRepository(pg.DB), matching.DefaultRules(), log),
		log:       log,
	}, nil
}

// reindex embeds one vehicle, or every vehicle when id is empty. Failures are logged and skipped.
func (tk *toolkit) reindex(ctx context.Context, id string) (int, error) {
	var vehicles []models.Vehicle
	if id != "" {
		v, err := tk.inventory.GetVehicle(ctx, id)
		if err != nil {
			return 0, err
		}
		vehicles = []models.Vehicle{*v}
	} else {
		all, err := tk.inventory.ListVehicles(ctx)
		if err != nil {
			return 0, err
		}
		vehicles = all
	}

	indexed := 0
	for _, v := range vehicles {
		if err := tk.index.IndexVehicle(ctx, v); err != nil {
			tk.log.WithError(err).Warn("vehicle not indexed", map[string]interface{}{"vehicleId": v.ID})
			continue
		}
		indexed++
	}
	return indexed, nil
}

func (tk *toolkit) match(ctx context.Context, id string) ([]models.LeadMatch, error) {
	v, err := tk.inventory.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	return tk.matcher.MatchVehicleToLeads(ctx, *v)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func help() {
	fmt.Print(`
Usage: reindex-inventory <command> [flags]

Commands:
  reindex  Embed vehicles into the semantic index
  search   Query the semantic index
  match    List leads that fit a vehicle
  help     Show this help message

Examples:
  reindex-inventory reindex
  reindex-inventory reindex -id car-123
  reindex-inventory search -q "SUV familiar económica" -limit 5
  reindex-inventory match -id car-123

Use 'reindex-inventory <command> -h' for more information about a command.
`)
}
