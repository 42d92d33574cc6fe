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

// Command searcher prints the passages closest to a query. It reads the
// configuration named by PAPERTRAIL_CONFIG, or uses the defaults.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/papertrail"
	"github.com/poiesic/papertrail/config"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	cfg, err := config.Load(os.Getenv("PAPERTRAIL_CONFIG"))
	if err != nil {
		panic(err)
	}
	engine, err := papertrail.Open(cfg)
	if err != nil {
		panic(err)
	}
	defer engine.Close()
	retriever, err := engine.NewRetriever()
	if err != nil {
		panic(err)
	}

	query := "retrieval augmented generation"
	if len(os.Args) > 1 {
		query = strings.Join(os.Args[1:], " ")
	}

	ctx := context.Background()
	results, err := retriever.Retrieve(ctx, query, 5, cfg.Retrieval.MaxPerDocument)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' #%d [%0.3f]\n", i, hit.Title, hit.Chunk.Index, hit.Score)
	}
}
