// File: internal/usecase/rag_uc_test.go
package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/ports/repository"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRagUseCase(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("should ingest supported documents and load the collection", func(t *testing.T) {
		// --- Arrange ---
		dir := t.TempDir()
		writeDoc(t, dir, "notes.md", "# Notes\n\nimportant fact one")
		writeDoc(t, dir, "extra.txt", "fact two")
		writeDoc(t, dir, "image.png", "binary junk") // ignored
		chunks := newMemChunkRepo()
		index := &fakeIndex{}
		notifs := newMemNotificationRepo()
		uc := NewRagUseCase(chunks, index, &fakeBackend{}, inlineRunner{}, notifs, fakeTM{}, "embed-model", testLogger)

		// --- Act ---
		err := uc.IndexFolder(ctx, "u1", dir, "work")

		// --- Assert ---
		if err != nil {
			t.Fatalf("index: %v", err)
		}
		stored, _ := chunks.FindByCollection(ctx, repository.NoTX, "work")
		if len(stored) == 0 {
			t.Fatal("expected chunks to be stored")
		}
		for _, c := range stored {
			if len(c.Embedding) == 0 {
				t.Fatal("every chunk must carry an embedding")
			}
			if strings.Contains(c.Content, "binary junk") {
				t.Error("unsupported file types must be skipped")
			}
		}
		if name, loaded := index.Status(); !loaded || name != "work" {
			t.Errorf("collection should be loaded, got %q/%v", name, loaded)
		}
		got, _ := notifs.FindAllByUser(ctx, repository.NoTX, "u1", false)
		if len(got) != 1 || got[0].Title != "Indexing complete" {
			t.Fatalf("expected a completion notification, got %+v", got)
		}
		if st := uc.Status(ctx); st.Collection != "work" || !st.Loaded {
			t.Errorf("unexpected status: %+v", st)
		}
	})

	t.Run("should replace a collection on re-index", func(t *testing.T) {
		// --- Arrange ---
		dir := t.TempDir()
		writeDoc(t, dir, "a.txt", "version one")
		chunks := newMemChunkRepo()
		uc := NewRagUseCase(chunks, &fakeIndex{}, &fakeBackend{}, inlineRunner{}, newMemNotificationRepo(), fakeTM{}, "embed-model", testLogger)
		if err := uc.IndexFolder(ctx, "u1", dir, "work"); err != nil {
			t.Fatalf("first index: %v", err)
		}

		// --- Act ---
		writeDoc(t, dir, "a.txt", "version two")
		if err := uc.IndexFolder(ctx, "u1", dir, "work"); err != nil {
			t.Fatalf("second index: %v", err)
		}

		// --- Assert ---
		stored, _ := chunks.FindByCollection(ctx, repository.NoTX, "work")
		for _, c := range stored {
			if strings.Contains(c.Content, "version one") {
				t.Fatal("stale chunks must be replaced on re-index")
			}
		}
		cols, _ := uc.Collections(ctx)
		if cols["work"] != len(stored) {
			t.Errorf("collection counts out of sync: %v vs %d", cols, len(stored))
		}
	})

	t.Run("should reject folders without supported documents", func(t *testing.T) {
		// --- Arrange ---
		dir := t.TempDir()
		writeDoc(t, dir, "photo.jpg", "x")
		uc := NewRagUseCase(newMemChunkRepo(), &fakeIndex{}, &fakeBackend{}, inlineRunner{}, newMemNotificationRepo(), fakeTM{}, "embed-model", testLogger)

		// --- Act / Assert ---
		if err := uc.IndexFolder(ctx, "u1", dir, "c"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation, got: %v", err)
		}
		if err := uc.IndexFolder(ctx, "u1", filepath.Join(dir, "missing"), "c"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("missing folder: expected ErrInvalidArgument, got: %v", err)
		}
	})

	t.Run("should replace a collection inside a single transaction", func(t *testing.T) {
		// --- Arrange ---
		dir := t.TempDir()
		writeDoc(t, dir, "a.txt", "content")
		chunks := newMemChunkRepo()
		tm := &spyTM{}
		uc := NewRagUseCase(chunks, &fakeIndex{}, &fakeBackend{}, inlineRunner{}, newMemNotificationRepo(), tm, "embed-model", testLogger)

		// --- Act ---
		if err := uc.IndexFolder(ctx, "u1", dir, "work"); err != nil {
			t.Fatalf("index: %v", err)
		}

		// --- Assert ---
		if tm.calls != 1 {
			t.Fatalf("expected one transaction, got %d", tm.calls)
		}
		if _, ok := chunks.lastDeleteTx.(txMarker); !ok {
			t.Error("collection delete must run inside the transaction")
		}
		if _, ok := chunks.lastSaveTx.(txMarker); !ok {
			t.Error("batch store must run inside the transaction")
		}
	})

	t.Run("should not load the index when storing the batch fails", func(t *testing.T) {
		// --- Arrange ---
		dir := t.TempDir()
		writeDoc(t, dir, "a.txt", "content")
		chunks := newMemChunkRepo()
		chunks.saveBatchErr = errors.New("disk full")
		index := &fakeIndex{}
		notifs := newMemNotificationRepo()
		uc := NewRagUseCase(chunks, index, &fakeBackend{}, inlineRunner{}, notifs, fakeTM{}, "embed-model", testLogger)

		// --- Act ---
		_ = uc.IndexFolder(ctx, "u1", dir, "work")

		// --- Assert ---
		if _, loaded := index.Status(); loaded {
			t.Error("a failed batch must not be loaded")
		}
		got, _ := notifs.FindAllByUser(ctx, repository.NoTX, "u1", false)
		if len(got) != 1 || got[0].Title != "Indexing failed" {
			t.Fatalf("expected a failure notification, got %+v", got)
		}
	})

	t.Run("should notify about embedding failures", func(t *testing.T) {
		// --- Arrange ---
		dir := t.TempDir()
		writeDoc(t, dir, "a.txt", "content")
		backend := &fakeBackend{embedFn: func(inputs []string) ([][]float32, error) {
			return nil, errors.New("model not pulled")
		}}
		notifs := newMemNotificationRepo()
		uc := NewRagUseCase(newMemChunkRepo(), &fakeIndex{}, backend, inlineRunner{}, notifs, fakeTM{}, "embed-model", testLogger)

		// --- Act ---
		_ = uc.IndexFolder(ctx, "u1", dir, "work")

		// --- Assert ---
		got, _ := notifs.FindAllByUser(ctx, repository.NoTX, "u1", false)
		if len(got) != 1 || got[0].Title != "Indexing failed" {
			t.Fatalf("expected a failure notification, got %+v", got)
		}
	})
}

func TestSplitChunks(t *testing.T) {
	t.Run("should pack paragraphs up to the budget", func(t *testing.T) {
		a := strings.Repeat("a", 700)
		b := strings.Repeat("b", 700)
		got := splitChunks(a + "\n\n" + b)
		if len(got) != 2 {
			t.Fatalf("two oversized paragraphs must land in two chunks, got %d", len(got))
		}
	})

	t.Run("should hard-split a paragraph larger than the budget", func(t *testing.T) {
		got := splitChunks(strings.Repeat("x", chunkSize*2+10))
		if len(got) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(got))
		}
		for i, c := range got {
			if len(c) > chunkSize {
				t.Errorf("chunk %d exceeds the budget: %d", i, len(c))
			}
		}
	})

	t.Run("should split multibyte text on rune boundaries", func(t *testing.T) {
		got := splitChunks(strings.Repeat("é", chunkSize)) // 2 bytes per rune
		if len(got) < 2 {
			t.Fatalf("expected the text to be split, got %d chunks", len(got))
		}
		for i, c := range got {
			if !utf8.ValidString(c) {
				t.Errorf("chunk %d is not valid UTF-8", i)
			}
			if len(c) > chunkSize {
				t.Errorf("chunk %d exceeds the budget: %d", i, len(c))
			}
		}
	})

	t.Run("should drop blank input", func(t *testing.T) {
		if got := splitChunks("  \n\n  "); len(got) != 0 {
			t.Fatalf("expected no chunks, got %v", got)
		}
	})
}
