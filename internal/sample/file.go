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
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// FileSource reads whitespace-separated "score user item1 item2 ..." lines
// from a plain text or lz4-compressed file. Malformed lines (too few
// fields, non-numeric score or ids) are skipped and counted, never fatal.
type FileSource struct {
	f       *os.File
	scanner *bufio.Scanner
	skipped uint64
}

// OpenFileSource opens path for reading samples. Files ending in ".lz4"
// are transparently decompressed via github.com/pierrec/lz4/v4.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader = f
	if strings.HasSuffix(path, ".lz4") {
		r = lz4.NewReader(f)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &FileSource{f: f, scanner: scanner}, nil
}

// Skipped reports how many lines were dropped for being malformed.
func (s *FileSource) Skipped() uint64 { return s.skipped }

func (s *FileSource) Next() (float64, []int32, bool) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			s.skipped++
			continue
		}
		score, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			s.skipped++
			continue
		}
		x := make([]int32, 0, len(fields)-1)
		malformed := false
		for _, field := range fields[1:] {
			id, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				malformed = true
				break
			}
			x = append(x, int32(id))
		}
		if malformed || len(x) < 1 {
			s.skipped++
			continue
		}
		return score, x, true
	}
	return 0, nil, false
}

func (s *FileSource) Close() error {
	return s.f.Close()
}
