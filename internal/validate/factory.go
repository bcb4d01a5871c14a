package validate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dataplatform/validation-pipeline/internal/avroschema"
	"github.com/dataplatform/validation-pipeline/internal/pipelineerr"
)

// Converter turns raw blob bytes into the record(s) it contains. A JSON
// document that is an object is one record; a JSON document that is an
// array is a batch of records, validated independently.
type Converter interface {
	Convert(data []byte) ([]avroschema.Value, error)
}

// Factory resolves a Converter by filename extension and caches instances,
// mirroring the cache-by-extension behavior of the reference validator
// factory: the first file of a given extension builds the converter, every
// subsequent file of that extension reuses it.
type Factory struct {
	mu    sync.Mutex
	cache map[string]Converter
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{cache: make(map[string]Converter)}
}

// Resolve returns the Converter for filename's extension, building and
// caching it on first use. An unrecognized extension is a
// pipelineerr.KindUnsupportedFormat error, not a panic — the caller (the
// evaluate job) treats it as a per-blob skip, not a job failure.
func (f *Factory) Resolve(filename string) (Converter, error) {
	ext := extensionOf(filename)

	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.cache[ext]; ok {
		return c, nil
	}

	var c Converter
	switch ext {
	case "json":
		c = jsonValidator{}
	default:
		return nil, pipelineerr.Newf(pipelineerr.KindUnsupportedFormat, "unsupported file type %q", ext)
	}

	f.cache[ext] = c
	return c, nil
}

// Clear empties the cache. Useful between test cases that need a fresh
// factory without allocating a new one.
func (f *Factory) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]Converter)
}

// Size returns the number of distinct extensions currently cached.
func (f *Factory) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}

func extensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// jsonValidator converts a JSON blob into one or more records. An array at
// the top level is a batch; any other JSON value is a single record.
type jsonValidator struct{}

func (jsonValidator) Convert(data []byte) ([]avroschema.Value, error) {
	v, err := avroschema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if v.Tag == avroschema.TagArray {
		return v.Arr, nil
	}
	return []avroschema.Value{v}, nil
}
