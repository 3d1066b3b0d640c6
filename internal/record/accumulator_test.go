package record

import (
	"testing"
)

func TestAccumulatorUpsertOverwritesInPlace(t *testing.T) {
	acc := NewAccumulator()

	acc.Upsert(&FilingRecord{FilingDate: "2019-06-30", SentimentScore: 0.1})
	acc.Upsert(&FilingRecord{FilingDate: "2019-03-31", SentimentScore: 0.2})
	replaced := acc.Upsert(&FilingRecord{FilingDate: "2019-06-30", SentimentScore: 0.9})

	if !replaced {
		t.Fatalf("expected second upsert of same key to report overwrite")
	}
	if acc.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", acc.Len())
	}

	snap := acc.Snapshot()
	if snap[0].Key() != "2019-06-30" || snap[1].Key() != "2019-03-31" {
		t.Fatalf("first-insertion order not preserved: %q, %q", snap[0].Key(), snap[1].Key())
	}
	// 第二次抽取的值覆盖第一次
	if got := snap[0].Row()[1]; got != "0.9000" {
		t.Fatalf("overwritten score = %q, want %q", got, "0.9000")
	}
}

func TestAccumulatorSnapshotIsCopy(t *testing.T) {
	acc := NewAccumulator()
	acc.Upsert(&ArticleRecord{URL: "https://example.com/a"})

	snap := acc.Snapshot()
	acc.Upsert(&ArticleRecord{URL: "https://example.com/b"})

	if len(snap) != 1 {
		t.Fatalf("snapshot changed after upsert: len=%d", len(snap))
	}
	if !acc.Has("https://example.com/b") || acc.Has("https://example.com/c") {
		t.Fatalf("Has() returned unexpected membership")
	}
}

func TestRecordRowsMatchHeaders(t *testing.T) {
	f := &FilingRecord{FilingDate: "2018-09-30", SentimentScore: -0.25}
	if len(f.Row()) != len(FilingHeader()) {
		t.Fatalf("filing row has %d columns, header has %d", len(f.Row()), len(FilingHeader()))
	}
	if f.Row()[1] != "-0.2500" {
		t.Fatalf("score formatting = %q", f.Row()[1])
	}

	a := &ArticleRecord{URL: "u", Title: "t", Author: "a", PublishedDate: "2020-01-02", PublishedTime: "03:04:05", BodyText: "b"}
	if len(a.Row()) != len(ArticleHeader()) {
		t.Fatalf("article row has %d columns, header has %d", len(a.Row()), len(ArticleHeader()))
	}
	if a.Key() != "u" || a.Text() != "b" {
		t.Fatalf("article key/text mismatch: %q %q", a.Key(), a.Text())
	}
}
