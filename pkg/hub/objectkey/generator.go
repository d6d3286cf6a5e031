package objectkey

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator derives the blob path for an upload. Paths are unique per
// uploader without reading the store first.
type Generator interface {
	GenerateKey(uploaderID uuid.UUID, fileName string, at time.Time) string
}

// TimestampGenerator keeps uploads under the uploader's directory, named by
// upload time: {uploader}/{unix_millis}-{nonce}.{ext}
// The nonce keeps two uploads in the same millisecond apart.
type TimestampGenerator struct {
	// Nonce returns the collision suffix. Defaults to 8 random hex chars.
	Nonce func() string
}

func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{Nonce: randomNonce}
}

func (g *TimestampGenerator) GenerateKey(uploaderID uuid.UUID, fileName string, at time.Time) string {
	nonce := randomNonce
	if g.Nonce != nil {
		nonce = g.Nonce
	}
	name := fmt.Sprintf("%d-%s", at.UnixMilli(), nonce())
	if ext := extension(fileName); ext != "" {
		name += "." + ext
	}
	return fmt.Sprintf("%s/%s", uploaderID, name)
}

// ShardedGenerator spreads uploads over two-character shard directories and
// keeps the sanitized original name:
// materials/{shard}/{id}_{filename}
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
	newID       func() uuid.UUID
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2, newID: uuid.New}
}

func (g *ShardedGenerator) GenerateKey(uploaderID uuid.UUID, fileName string, at time.Time) string {
	newID := uuid.New
	if g.newID != nil {
		newID = g.newID
	}
	id := strings.ReplaceAll(newID().String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength >= len(id) {
		shardLength = 2
	}

	filename := id[shardLength:]
	if base := path.Base(strings.ReplaceAll(fileName, "\\", "/")); base != "" && base != "." && base != "/" {
		filename = fmt.Sprintf("%s_%s", filename, sanitizeFilename(base))
	}
	return fmt.Sprintf("materials/%s/%s", id[:shardLength], filename)
}

// FuncGenerator adapts a function to a Generator.
type FuncGenerator func(uploaderID uuid.UUID, fileName string, at time.Time) string

func (f FuncGenerator) GenerateKey(uploaderID uuid.UUID, fileName string, at time.Time) string {
	return f(uploaderID, fileName, at)
}

// New returns the generator registered under name: "timestamp" (default) or
// "sharded".
func New(name string) (Generator, error) {
	switch strings.ToLower(name) {
	case "", "timestamp":
		return NewTimestampGenerator(), nil
	case "sharded":
		return NewShardedGenerator(), nil
	}
	return nil, fmt.Errorf("unknown object key generator: %s", name)
}

func extension(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return sanitizeFilename(strings.ToLower(base[i+1:]))
}

func randomNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}
