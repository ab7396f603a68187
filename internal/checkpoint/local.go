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
package checkpoint

import (
	"io"
	"os"
	"path/filepath"
)

// LocalStore copies a finished model file into Dir, alongside a
// run-tagged .meta.json sidecar. Like a schema file that gets backed up
// before being overwritten, the previous "latest" pointer is renamed
// aside rather than truncated in place.
type LocalStore struct {
	Dir       string
	SourceTag string
}

// NewLocalStore returns a Store that writes checkpoints under dir,
// creating it if necessary.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir}
}

func (l *LocalStore) Save(localPath string) (Metadata, error) {
	meta := newMetadata(l.SourceTag)

	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		return Metadata{}, err
	}

	dest := filepath.Join(l.Dir, "model-"+meta.RunID+".txt")
	if err := copyFile(localPath, dest); err != nil {
		return Metadata{}, err
	}

	body, err := meta.marshal()
	if err != nil {
		return Metadata{}, err
	}
	sidecar := dest + ".meta.json"
	if err := os.WriteFile(sidecar, body, 0644); err != nil {
		return Metadata{}, err
	}

	// "latest" pointer files let mf-predict always find the newest
	// checkpoint without scanning the directory for the largest run id.
	latest := filepath.Join(l.Dir, "latest.txt")
	backupLatest(latest)
	if err := copyFile(localPath, latest); err != nil {
		return Metadata{}, err
	}

	return meta, nil
}

func backupLatest(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	os.Rename(path, path+".bak")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
