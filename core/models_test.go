package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "url key", content: "http://arxiv.org/abs/2401.00001v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocument_ContentHash(t *testing.T) {
	base := Document{Key: "k", Title: "Title", Authors: []string{"A", "B"}, Content: "body text"}

	same := base
	if base.ContentHash() != same.ContentHash() {
		t.Errorf("identical documents hashed differently")
	}

	// The key is identity, not content.
	rekeyed := base
	rekeyed.Key = "other"
	if base.ContentHash() != rekeyed.ContentHash() {
		t.Errorf("key change altered the content hash")
	}

	changed := []Document{
		{Key: "k", Title: "Title 2", Authors: base.Authors, Content: base.Content},
		{Key: "k", Title: base.Title, Authors: []string{"A"}, Content: base.Content},
		{Key: "k", Title: base.Title, Authors: []string{"A, B"}, Content: base.Content},
		{Key: "k", Title: base.Title, Authors: base.Authors, Content: "body text!"},
	}
	for i, doc := range changed {
		if doc.ContentHash() == base.ContentHash() {
			t.Errorf("variant %d should hash differently", i)
		}
	}
}

func TestEmbeddingText(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		authors []string
		text    string
		want    string
	}{
		{
			name:    "all fields",
			title:   "Attention Is All You Need",
			authors: []string{"Vaswani", "Shazeer"},
			text:    "The dominant sequence transduction models",
			want:    "Attention Is All You Need Vaswani, Shazeer The dominant sequence transduction models",
		},
		{
			name: "text only",
			text: "just the chunk",
			want: "just the chunk",
		},
		{
			name:  "no authors",
			title: "T",
			text:  "x",
			want:  "T x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PendingChunk{Text: tt.text, Title: tt.title, Authors: tt.authors}
			if got := p.EmbeddingText(); got != tt.want {
				t.Errorf("EmbeddingText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkRef_Compare(t *testing.T) {
	a0 := ChunkRef{DocumentKey: "a", Index: 0}
	a1 := ChunkRef{DocumentKey: "a", Index: 1}
	b0 := ChunkRef{DocumentKey: "b", Index: 0}

	if a0.Compare(a1) >= 0 || a1.Compare(a0) <= 0 {
		t.Errorf("index ordering broken")
	}
	if a1.Compare(b0) >= 0 {
		t.Errorf("document key must dominate index")
	}
	if a0.Compare(a0) != 0 {
		t.Errorf("ref should equal itself")
	}
}

func TestStage_String(t *testing.T) {
	if StagePersisted.String() != "PERSISTED" || StageFailed.String() != "FAILED" {
		t.Errorf("unexpected stage names")
	}
	if Stage(42).String() != "UNKNOWN" {
		t.Errorf("unknown stage should render as UNKNOWN")
	}
	if !StagePersisted.Terminal() || !StageFailed.Terminal() || StageEmbedding.Terminal() {
		t.Errorf("terminal stages misclassified")
	}
}
