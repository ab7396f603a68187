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
package config

import "fmt"

// TrainOptions holds every cmd/mf-train flag, already parsed and
// range-checked, so main() stays a thin wrapper around flag.Parse and
// trainer construction.
type TrainOptions struct {
	Epoch      int
	Alpha      float64
	L2         float64
	Threads    int
	BatchSize  int
	PushStep   uint64
	FetchStep  uint64
	GroupSize  uint32
	Descriptor string
	Input      string
	Output     string

	CheckpointBackend string // "local" or "s3"
	CheckpointDir     string
	S3Bucket          string
	S3Prefix          string
	S3Region          string
	S3Endpoint        string
	S3ForcePathStyle  bool

	DashboardAddr string // empty disables the live dashboard

	UseIDs bool // map sparse string keys to dense rows ahead of Update

	Source string // "file" (default), "mysql", or "postgres"
	DSN    string // connection string for Source=mysql|postgres
	Query  string // projects exactly (score, user_id, item_id) columns

	WatchDir string // non-empty: hot-reload new shards from this directory between epochs
}

// Validate reports the first configuration problem found, or nil.
func (o TrainOptions) Validate() error {
	switch {
	case o.Epoch <= 0:
		return fmt.Errorf("epoch must be positive, got %d", o.Epoch)
	case o.Threads < 0:
		return fmt.Errorf("threads must not be negative, got %d", o.Threads)
	case o.BatchSize <= 0:
		return fmt.Errorf("batch-size must be positive, got %d", o.BatchSize)
	case o.PushStep == 0:
		return fmt.Errorf("push-step must be positive, got %d", o.PushStep)
	case o.FetchStep == 0:
		return fmt.Errorf("fetch-step must be positive, got %d", o.FetchStep)
	case o.Descriptor == "":
		return fmt.Errorf("descriptor path is required")
	case o.Source == "file" && o.Input == "":
		return fmt.Errorf("input path is required")
	case o.Output == "":
		return fmt.Errorf("output path is required")
	case o.CheckpointBackend == "s3" && o.S3Bucket == "":
		return fmt.Errorf("checkpoint-backend=s3 requires an s3-bucket")
	case o.Source != "file" && o.Source != "mysql" && o.Source != "postgres":
		return fmt.Errorf("source must be file, mysql, or postgres, got %q", o.Source)
	case o.Source != "file" && o.DSN == "":
		return fmt.Errorf("source=%s requires a dsn", o.Source)
	case o.Source != "file" && o.Query == "":
		return fmt.Errorf("source=%s requires a query", o.Source)
	}
	return nil
}

// PredictOptions holds every cmd/mf-predict flag.
type PredictOptions struct {
	Test    string
	Model   string
	Threads int
}

func (o PredictOptions) Validate() error {
	switch {
	case o.Test == "":
		return fmt.Errorf("test path is required")
	case o.Model == "":
		return fmt.Errorf("model path is required")
	case o.Threads <= 0:
		return fmt.Errorf("threads must be positive, got %d", o.Threads)
	}
	return nil
}
