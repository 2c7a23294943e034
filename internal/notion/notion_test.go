package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestChunkBlocks(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits in one", "a\nb\nc", 10, []string{"a\nb\nc"}},
		{"splits on line boundary", "aaaa\nbbbb\ncccc", 9, []string{"aaaa\nbbbb", "cccc"}},
		{"hard split long line", strings.Repeat("x", 25), 10, []string{
			strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}},
		{"empty text", "", 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkBlocks(tt.text, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("chunkBlocks = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkBlocksRespectsLimitInRunes(t *testing.T) {
	// Multi-byte text must be counted per character, not per byte.
	text := strings.Repeat("가", 4500)
	chunks := chunkBlocks(text, blockCharLimit)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > blockCharLimit {
			t.Errorf("chunk %d has %d chars, over the limit", i, n)
		}
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d split mid-rune", i)
		}
	}
}

func TestCreatePage(t *testing.T) {
	var got createPageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Notion-Version") == "" || r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"object":"page"}`))
	}))
	defer srv.Close()

	c := NewClient("tok", "parent-page", zap.NewNop())
	c.baseURL = srv.URL

	body := strings.Repeat("a", 2100)
	if err := c.CreatePage(context.Background(), "일간 리포트 2026-02-02", body); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if got.Parent.PageID != "parent-page" {
		t.Errorf("parent page id = %q", got.Parent.PageID)
	}
	if len(got.Children) != 2 {
		t.Errorf("children = %d blocks, want 2", len(got.Children))
	}
	for _, b := range got.Children {
		if len(b.Paragraph.RichText) != 1 || len([]rune(b.Paragraph.RichText[0].Text.Content)) > blockCharLimit {
			t.Error("paragraph block over the character limit")
		}
	}
}

func TestCreatePageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"object":"error"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("tok", "parent-page", zap.NewNop())
	c.baseURL = srv.URL
	if err := c.CreatePage(context.Background(), "t", "b"); err == nil {
		t.Fatal("expected error on non-OK response")
	}
}
