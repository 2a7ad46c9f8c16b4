// Package main provides the streams command-line tool: it runs one
// ingestion cycle against the configured repositories and prints the
// aggregated activity as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/streamshq/streams/internal/config"
	"github.com/streamshq/streams/pkg/streams"
)

const fetchTimeout = 5 * time.Minute

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to YAML config file")
	repoSpec := flag.String("repo", "", "Single owner/name repository (overrides config repos)")
	flag.Parse()

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	// Load a .env file if present before reading the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	if *repoSpec != "" {
		cfg.Repos = []string{*repoSpec}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s [--debug] [--config file] [--repo owner/name]\n", os.Args[0])
		log.Printf("Invalid config: %v", err)
		os.Exit(1)
	}

	repos := make([]streams.Repo, 0, len(cfg.Repos))
	for _, spec := range cfg.Repos {
		owner, name, err := config.SplitRepo(spec)
		if err != nil {
			log.Printf("Invalid repository: %v", err)
			os.Exit(1)
		}
		repos = append(repos, streams.Repo{Owner: owner, Name: name})
	}

	opts := []streams.Option{
		streams.WithPageSize(cfg.PageSize),
		streams.WithPageLimit(cfg.PageLimit),
		streams.WithPageTimeout(cfg.PageTimeout),
		streams.WithWorkers(cfg.Workers),
	}
	if *debug {
		opts = append(opts, streams.WithLogger(slog.Default()))
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, streams.WithBaseURL(cfg.APIBaseURL))
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	client := streams.NewClient(cfg.Token, opts...)
	snapshot, err := client.FetchAll(ctx, repos)
	if err != nil {
		log.Printf("Ingestion cycle failed: %v", err)
		cancel()
		os.Exit(1)
	}

	out := struct {
		*streams.Snapshot
		Groups map[streams.Dimension]map[string]*streams.Group `json:"groups"`
	}{
		Snapshot: snapshot,
		Groups: map[streams.Dimension]map[string]*streams.Group{
			streams.DimensionUsers:        snapshot.Store.Groups(streams.DimensionUsers),
			streams.DimensionIssues:       snapshot.Store.Groups(streams.DimensionIssues),
			streams.DimensionBranches:     snapshot.Store.Groups(streams.DimensionBranches),
			streams.DimensionPullRequests: snapshot.Store.Groups(streams.DimensionPullRequests),
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	if err := encoder.Encode(out); err != nil {
		log.Printf("Failed to encode snapshot: %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()
}
