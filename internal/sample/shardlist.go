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
package sample

import (
	"bufio"
	"os"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ReadShardList reads one shard file path per line from path, the same
// simple list format the original split_trainfiles() function consumed.
func ReadShardList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var shards []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		shards = append(shards, line)
	}
	return shards, scanner.Err()
}

// Partition splits shards into at most numThreads contiguous, roughly
// equal sub-lists, one per worker goroutine. If there are fewer shards
// than threads, it returns one sub-list per shard (so the trainer can
// shrink its thread count to match, exactly as split_trainfiles() does).
func Partition(shards []string, numThreads int) [][]string {
	if numThreads <= 0 {
		numThreads = 1
	}
	if len(shards) <= numThreads {
		out := make([][]string, len(shards))
		for i, s := range shards {
			out[i] = []string{s}
		}
		return out
	}

	out := make([][]string, numThreads)
	each := len(shards) / numThreads
	idx := 0
	for i := 0; i < numThreads; i++ {
		end := idx + each
		if i == numThreads-1 {
			end = len(shards)
		}
		out[i] = append([]string(nil), shards[idx:end]...)
		idx = end
	}
	return out
}

// ShardWatcher watches a directory for newly created shard files between
// epochs, so a long-running trainer can pick up freshly landed data for
// its next pass without a restart. It reports additions only, using
// fsnotify the same way a hot-reloading config watcher would.
type ShardWatcher struct {
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	added   []string
}

// WatchDir starts watching dir for file creation events.
func WatchDir(dir string) (*ShardWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	sw := &ShardWatcher{watcher: w}
	go sw.run()
	return sw, nil
}

func (sw *ShardWatcher) run() {
	for event := range sw.watcher.Events {
		if event.Op&fsnotify.Create == fsnotify.Create {
			sw.mu.Lock()
			sw.added = append(sw.added, event.Name)
			sw.mu.Unlock()
		}
	}
}

// Drain returns and clears the shard paths observed since the last call,
// sorted for deterministic ordering across epochs.
func (sw *ShardWatcher) Drain() []string {
	sw.mu.Lock()
	out := sw.added
	sw.added = nil
	sw.mu.Unlock()
	sort.Strings(out)
	return out
}

func (sw *ShardWatcher) Close() error {
	return sw.watcher.Close()
}
