package rag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
)

// Document is a corpus file reduced to plain-text blocks.
type Document struct {
	Source string
	Blocks []string
}

// blockSelector lists the HTML elements treated as text blocks.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td, th"

// LoadCorpus reads every .md, .markdown, .html, .htm and .txt file under dir.
// A missing directory yields no documents.
func LoadCorpus(dir string) ([]Document, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" && ext != ".html" && ext != ".htm" && ext != ".txt" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var blocks []string
		switch ext {
		case ".md", ".markdown":
			blocks, err = MarkdownBlocks(raw)
		case ".html", ".htm":
			blocks, err = HTMLBlocks(bytes.NewReader(raw))
		default:
			blocks = TextBlocks(string(raw))
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if len(blocks) == 0 {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		docs = append(docs, Document{Source: filepath.ToSlash(rel), Blocks: blocks})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// MarkdownBlocks renders markdown to HTML and extracts its text blocks.
func MarkdownBlocks(src []byte) ([]string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return HTMLBlocks(&buf)
}

// HTMLBlocks extracts the text of leaf block elements, in document order.
func HTMLBlocks(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Containers are skipped; their nested blocks are visited on their own.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if text := normalizeSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) == 0 {
		if text := normalizeSpace(doc.Text()); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks, nil
}

// TextBlocks splits plain text into paragraphs on blank lines.
func TextBlocks(s string) []string {
	var blocks []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if text := normalizeSpace(p); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks
}

// SplitChunks joins blocks and cuts the text into windows of at most size
// runes, overlapping by overlap runes. Cuts prefer whitespace.
func SplitChunks(blocks []string, size, overlap int) []string {
	text := []rune(strings.Join(blocks, "\n\n"))
	if len(text) == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var out []string
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			for i := end; i > start+size/2; i-- {
				if unicode.IsSpace(text[i]) {
					end = i
					break
				}
			}
		}

		if chunk := strings.TrimSpace(string(text[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// ChunkDocument splits doc into chunks with stable ids.
func ChunkDocument(doc Document, size, overlap int) []Chunk {
	parts := SplitChunks(doc.Blocks, size, overlap)
	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, Chunk{
			ID:     fmt.Sprintf("%s#%d", doc.Source, i),
			Source: doc.Source,
			Text:   p,
		})
	}
	return chunks
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
