package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"logwatch/pkg/models"
)

const maxLineSize = 4 << 20 // 4MB

// FileSource reads an NDJSON log file, one record per line. Files ending in .gz
// are decompressed on the fly.
type FileSource struct {
	path string
}

func NewFile(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context) ([]models.LogRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(s.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, s.path, err)
		}
		defer gz.Close()
		r = gz
	}

	return readNDJSON(ctx, r)
}

func readNDJSON(ctx context.Context, r io.Reader) ([]models.LogRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	records := []models.LogRecord{}
	line := 0
	for sc.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}

		var rec models.LogRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDecode, line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return records, nil
}
