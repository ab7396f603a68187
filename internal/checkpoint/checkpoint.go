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

// Package checkpoint abstracts where a finished model file ends up: local
// disk or an S3 bucket. Every Store call tags the checkpoint with a run
// UUID so concurrent runs writing into the same directory/prefix never
// collide.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Store persists an already-written local model file (produced by
// paramstore.Store.SaveModel) to its final destination.
type Store interface {
	// Save uploads/copies localPath (the model file) and returns the run
	// metadata that was written alongside it.
	Save(localPath string) (Metadata, error)
}

// Metadata is the sidecar JSON written next to every checkpoint.
type Metadata struct {
	RunID     string    `json:"run_id"`
	SavedAt   time.Time `json:"saved_at"`
	SourceTag string    `json:"source,omitempty"`
}

func newMetadata(sourceTag string) Metadata {
	return Metadata{
		RunID:     uuid.NewString(),
		SavedAt:   time.Now().UTC(),
		SourceTag: sourceTag,
	}
}

func (m Metadata) marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
