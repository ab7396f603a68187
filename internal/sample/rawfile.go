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

// RawFileSource reads whitespace-separated "score userKey itemKey1
// itemKey2 ..." lines the same way FileSource does, except the user and
// item fields stay sparse string keys instead of being parsed as int32
// row indices. It feeds a dictionary-mapping source ahead of the core
// trainer, which only ever sees dense ids.
type RawFileSource struct {
	f       *os.File
	scanner *bufio.Scanner
	skipped uint64
}

// OpenRawFileSource opens path for reading raw, string-keyed samples.
// Files ending in ".lz4" are transparently decompressed, same as
// OpenFileSource.
func OpenRawFileSource(path string) (*RawFileSource, error) {
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
	return &RawFileSource{f: f, scanner: scanner}, nil
}

// Skipped reports how many lines were dropped for being malformed.
func (s *RawFileSource) Skipped() uint64 { return s.skipped }

func (s *RawFileSource) Next() (float64, []string, bool) {
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
		keys := append([]string(nil), fields[1:]...)
		return score, keys, true
	}
	return 0, nil, false
}

func (s *RawFileSource) Close() error {
	return s.f.Close()
}
