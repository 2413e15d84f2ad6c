package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/philippgille/chromem-go"
)

const memoryCollection = "memory-sections"

// MemoryIndex selects the memory excerpt most relevant to a user's question
// instead of plain head truncation. Everything here degrades silently: any
// index failure falls back to the head excerpt at the call site.
type MemoryIndex struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

// NewMemoryIndex opens (or creates) a persistent index under dir. The
// embedding function is supplied by the caller so tests can stay offline.
func NewMemoryIndex(dir string, embed chromem.EmbeddingFunc) (*MemoryIndex, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open memory index: %w", err)
	}
	return &MemoryIndex{db: db, embed: embed}, nil
}

// Rebuild replaces the index contents with the sections of the given memory
// document.
func (ix *MemoryIndex) Rebuild(ctx context.Context, memory string) error {
	sections := splitSections(memory)
	if len(sections) == 0 {
		return nil
	}

	if err := ix.db.DeleteCollection(memoryCollection); err != nil {
		return fmt.Errorf("reset memory index: %w", err)
	}
	col, err := ix.db.GetOrCreateCollection(memoryCollection, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("create memory collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(sections))
	for i, section := range sections {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("section-%d", i),
			Content: section,
		})
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("index memory sections: %w", err)
	}
	return nil
}

// Relevant returns the sections closest to the query, joined in similarity
// order and capped at maxChars. ok is false when the index has nothing
// useful and the caller should fall back to head truncation.
func (ix *MemoryIndex) Relevant(ctx context.Context, query string, maxChars int) (string, bool) {
	col := ix.db.GetCollection(memoryCollection, ix.embed)
	if col == nil || col.Count() == 0 {
		return "", false
	}

	n := 3
	if count := col.Count(); count < n {
		n = count
	}

	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		slog.Debug("Memory index query failed, falling back to head excerpt", "error", err)
		return "", false
	}
	if len(results) == 0 {
		return "", false
	}

	var b strings.Builder
	for _, res := range results {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(res.Content)
		if b.Len() >= maxChars {
			break
		}
	}

	excerpt := b.String()
	if maxChars > 0 && len(excerpt) > maxChars {
		excerpt = excerpt[:maxChars]
	}
	return excerpt, true
}

// splitSections breaks a memory document into blank-line separated blocks.
func splitSections(memory string) []string {
	var sections []string
	for _, block := range strings.Split(memory, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			sections = append(sections, block)
		}
	}
	return sections
}
