/*
Copyright (C) 2024  AsyncMF Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/dc0d/onexit"
	units "github.com/docker/go-units"

	"github.com/launix-de/asyncmf/internal/checkpoint"
	"github.com/launix-de/asyncmf/internal/config"
	"github.com/launix-de/asyncmf/internal/ids"
	"github.com/launix-de/asyncmf/internal/paramstore"
	"github.com/launix-de/asyncmf/internal/progress"
	"github.com/launix-de/asyncmf/internal/sample"
	"github.com/launix-de/asyncmf/internal/trainer"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "mf-train:", r)
			onexit.Exit(1)
		}
	}()

	opts := parseFlags()
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "mf-train:", err)
		printUsage()
		onexit.Exit(1)
		return
	}

	run(opts)
}

func parseFlags() config.TrainOptions {
	var opts config.TrainOptions
	var batchSizeFlag string

	flag.IntVar(&opts.Epoch, "epoch", 1, "number of passes over the training data")
	flag.Float64Var(&opts.Alpha, "alpha", 0.01, "learning rate")
	flag.Float64Var(&opts.L2, "l2", 0.0, "l2 regularization weight")
	flag.IntVar(&opts.Threads, "threads", 0, "worker goroutines (0 = one per shard)")
	flag.StringVar(&batchSizeFlag, "batch-size", "100k", "samples read per batch, e.g. 100k, 2M")
	flag.Uint64Var(&opts.PushStep, "push-step", 3, "push cadence, in updates per group")
	flag.Uint64Var(&opts.FetchStep, "fetch-step", 3, "fetch cadence, in updates per group")
	var groupSize uint
	flag.UintVar(&groupSize, "group-size", 1, "rows per spinlock group")
	flag.StringVar(&opts.Descriptor, "descriptor", "./feat_num", "path to the user/item/dim descriptor file")
	flag.StringVar(&opts.Input, "input", "", "training shard path or shard-list file")
	flag.StringVar(&opts.Output, "output", "", "model output path")
	flag.StringVar(&opts.CheckpointBackend, "checkpoint-backend", "local", "local or s3")
	flag.StringVar(&opts.CheckpointDir, "checkpoint-dir", "./checkpoints", "local checkpoint directory")
	flag.StringVar(&opts.S3Bucket, "s3-bucket", "", "s3 bucket for checkpoint-backend=s3")
	flag.StringVar(&opts.S3Prefix, "s3-prefix", "", "s3 key prefix")
	flag.StringVar(&opts.S3Region, "s3-region", "", "s3 region")
	flag.StringVar(&opts.S3Endpoint, "s3-endpoint", "", "custom s3-compatible endpoint")
	flag.BoolVar(&opts.S3ForcePathStyle, "s3-force-path-style", false, "use path-style s3 urls")
	flag.StringVar(&opts.DashboardAddr, "dashboard-addr", "", "address to serve the live progress dashboard on (empty disables it)")
	flag.BoolVar(&opts.UseIDs, "ids", false, "map sparse string user/item keys to dense rows before training")
	flag.StringVar(&opts.Source, "source", "file", "sample source: file, mysql, or postgres")
	flag.StringVar(&opts.DSN, "dsn", "", "connection string for source=mysql|postgres")
	flag.StringVar(&opts.Query, "query", "", "query projecting (score, user_id, item_id) for source=mysql|postgres")
	flag.StringVar(&opts.WatchDir, "watch-dir", "", "directory to watch for new shards between epochs (empty disables hot-reload)")
	flag.Parse()

	opts.GroupSize = uint32(groupSize)

	size, err := units.FromHumanSize(batchSizeFlag)
	if err != nil || size <= 0 {
		opts.BatchSize = trainer.DefaultBatchSize
	} else {
		opts.BatchSize = int(size)
	}

	return opts
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: mf-train --input=<shards> --output=<model> [flags]")
	flag.PrintDefaults()
}

func run(opts config.TrainOptions) {
	desc, err := config.ReadDescriptor(opts.Descriptor)
	if err != nil {
		panic(err)
	}

	shards, openSource, userNum, itemNum := resolveSource(opts, desc)

	var ps paramstore.Store
	if err := ps.Initialize(opts.Alpha, opts.L2, userNum, itemNum, desc.Dim, opts.GroupSize); err != nil {
		panic(err)
	}

	cfg := trainer.Config{
		Epoch:      opts.Epoch,
		Threads:    opts.Threads,
		BatchSize:  opts.BatchSize,
		PushStep:   opts.PushStep,
		FetchStep:  opts.FetchStep,
		OpenSource: openSource,
	}
	if opts.Threads <= 0 {
		cfg.Threads = len(shards)
	}

	if opts.WatchDir != "" {
		watcher, err := sample.WatchDir(opts.WatchDir)
		if err != nil {
			panic(err)
		}
		cfg.Watcher = watcher
		onexit.Register(func() { watcher.Close() })
	}

	var hub *progress.Hub
	if opts.DashboardAddr != "" {
		hub = progress.NewHub()
		server := &http.Server{Addr: opts.DashboardAddr, Handler: hub}
		go server.ListenAndServe()
		onexit.Register(func() { server.Close() })
		cfg.Sink = progress.MultiSink{progress.Printer{}, hub}
	}

	cfg.Checkpoint = buildCheckpointStore(opts)

	t := trainer.New(&ps, cfg)

	onexit.Register(func() {
		// best-effort final flush on SIGINT/SIGTERM: whatever epochs
		// already completed are still saved.
		ps.SaveModel(opts.Output)
	})

	if _, err := t.Run(shards, opts.Output); err != nil {
		panic(err)
	}
}

// resolveSource picks the shard list, the trainer.Config.OpenSource func,
// and the matrix dimensions for the configured ingestion path: a plain
// shard-list file (optionally pre-mapped through an id dictionary) or a
// single SQL query standing in for the whole shard list.
func resolveSource(opts config.TrainOptions, desc config.Descriptor) (shards []string, openSource func(string) (sample.Source, error), userNum, itemNum uint32) {
	userNum, itemNum = desc.UserNum, desc.ItemNum

	switch opts.Source {
	case "mysql", "postgres":
		// the trainer re-opens a source per shard path per epoch; a SQL
		// table has no file paths to distribute, so it gets one
		// placeholder shard and re-issues the same query every epoch.
		shards = []string{opts.Source + "://" + opts.Query}
		openSource = func(string) (sample.Source, error) {
			if opts.Source == "mysql" {
				return sample.OpenMySQLSource(opts.DSN, opts.Query)
			}
			return sample.OpenPostgresSource(opts.DSN, opts.Query)
		}
		return shards, openSource, userNum, itemNum
	}

	shards, err := sample.ReadShardList(opts.Input)
	if err != nil {
		panic(err)
	}

	if !opts.UseIDs {
		return shards, nil, userNum, itemNum
	}

	users, items, err := buildDictionaries(shards)
	if err != nil {
		panic(err)
	}
	userNum, itemNum = uint32(users.Len()), uint32(items.Len())
	openSource = func(path string) (sample.Source, error) {
		raw, err := sample.OpenRawFileSource(path)
		if err != nil {
			return nil, err
		}
		return ids.NewMappingSource(raw, users, items), nil
	}
	return shards, openSource, userNum, itemNum
}

// buildDictionaries makes a single pass over every shard, assigning each
// distinct user and item key the next dense row index in first-seen
// order. It runs single-threaded and completes before any worker
// goroutine starts, matching ids.Dictionary's documented concurrency
// contract.
func buildDictionaries(shards []string) (*ids.Dictionary, *ids.Dictionary, error) {
	users := ids.NewDictionary()
	items := ids.NewDictionary()
	for _, path := range shards {
		src, err := sample.OpenRawFileSource(path)
		if err != nil {
			return nil, nil, fmt.Errorf("building id dictionary from %q: %w", path, err)
		}
		for {
			_, keys, ok := src.Next()
			if !ok {
				break
			}
			if len(keys) == 0 {
				continue
			}
			users.IndexOf(keys[0])
			for _, key := range keys[1:] {
				items.IndexOf(key)
			}
		}
		src.Close()
	}
	return users, items, nil
}

func buildCheckpointStore(opts config.TrainOptions) checkpoint.Store {
	switch opts.CheckpointBackend {
	case "s3":
		return &checkpoint.S3Store{
			Bucket:         opts.S3Bucket,
			Prefix:         opts.S3Prefix,
			Region:         opts.S3Region,
			Endpoint:       opts.S3Endpoint,
			ForcePathStyle: opts.S3ForcePathStyle,
			SourceTag:      "mf-train",
		}
	default:
		store := checkpoint.NewLocalStore(opts.CheckpointDir)
		store.SourceTag = "mf-train"
		return store
	}
}
