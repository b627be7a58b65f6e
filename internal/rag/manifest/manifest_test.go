package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type mockProvider struct {
	onComplete func(ctx context.Context, prompt string) (string, error)
}

func (m *mockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return m.onComplete(ctx, prompt)
}

const testManifest = `Answer the question using the background information.

Background: {information}

Reference layout: {reference}

Question: {query}`

func tempStore(t *testing.T, content string) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seeding manifest: %v", err)
	}
	return NewFileStore(path)
}

func TestPlaceholders(t *testing.T) {
	set := Placeholders(testManifest)
	for _, want := range []string{"{information}", "{reference}", "{query}"} {
		if _, ok := set[want]; !ok {
			t.Errorf("missing placeholder %s", want)
		}
	}
	if len(set) != 3 {
		t.Errorf("expected 3 placeholders, got %d", len(set))
	}
}

func TestInterpolate_Verbatim(t *testing.T) {
	out := Interpolate(testManifest, "CTX", "QUESTION", "REF")
	if strings.Contains(out, "{information}") || strings.Contains(out, "{query}") || strings.Contains(out, "{reference}") {
		t.Error("placeholders left unsubstituted")
	}
	if !strings.Contains(out, "Background: CTX") || !strings.Contains(out, "Question: QUESTION") {
		t.Errorf("substitution mangled the template:\n%s", out)
	}
}

func TestApplyFeedback_PreservesPlaceholders(t *testing.T) {
	store := tempStore(t, testManifest)
	editor := NewEditor(&mockProvider{
		onComplete: func(ctx context.Context, prompt string) (string, error) {
			if !strings.Contains(prompt, "Include source citations in every response") {
				t.Error("edit prompt does not carry the feedback directive")
			}
			return "Cite sources. Background: {information}\nReference layout: {reference}\nQuestion: {query}", nil
		},
	}, store)

	revised, err := editor.ApplyFeedback(context.Background(), "Include source citations in every response")
	if err != nil {
		t.Fatalf("ApplyFeedback failed: %v", err)
	}
	if !SamePlaceholders(testManifest, revised) {
		t.Error("placeholder set changed across the edit")
	}

	// edit is durable and visible on the next read
	stored, err := store.Read()
	if err != nil {
		t.Fatalf("Read after edit failed: %v", err)
	}
	if stored != revised {
		t.Error("stored manifest does not match the returned revision")
	}
}

func TestApplyFeedback_RejectsPlaceholderLoss(t *testing.T) {
	store := tempStore(t, testManifest)
	editor := NewEditor(&mockProvider{
		onComplete: func(ctx context.Context, prompt string) (string, error) {
			return "A rewrite that dropped every placeholder.", nil
		},
	}, store)

	if _, err := editor.ApplyFeedback(context.Background(), "be shorter"); err == nil {
		t.Fatal("expected rejection of a rewrite that removes placeholders")
	}

	stored, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if stored != testManifest {
		t.Error("rejected rewrite still replaced the stored manifest")
	}
}

func TestApplyFeedback_MissingManifestIsFatal(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	editor := NewEditor(&mockProvider{
		onComplete: func(ctx context.Context, prompt string) (string, error) {
			t.Error("model should not be called when the manifest is unreadable")
			return "", nil
		},
	}, store)

	if _, err := editor.ApplyFeedback(context.Background(), "anything"); err == nil {
		t.Fatal("expected a read error to propagate")
	}
}

func TestApplyFeedback_ProviderErrorKeepsManifest(t *testing.T) {
	store := tempStore(t, testManifest)
	editor := NewEditor(&mockProvider{
		onComplete: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("provider down")
		},
	}, store)

	if _, err := editor.ApplyFeedback(context.Background(), "anything"); err == nil {
		t.Fatal("expected provider error to propagate")
	}
	stored, _ := store.Read()
	if stored != testManifest {
		t.Error("failed edit modified the stored manifest")
	}
}

func TestUpdate_SerializesWriters(t *testing.T) {
	store := tempStore(t, "counter 0 {query}")

	// Each writer reads the current value and bumps it; with the
	// read-modify-write under one lock no update is lost.
	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(func(current string) (string, error) {
				var n int
				if _, err := fmt.Sscanf(current, "counter %d", &n); err != nil {
					return "", err
				}
				return fmt.Sprintf("counter %d {query}", n+1), nil
			})
			if err != nil {
				t.Errorf("Update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	final, err := store.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var n int
	if _, err := fmt.Sscanf(final, "counter %d", &n); err != nil || n != writers {
		t.Errorf("expected counter %d, got %q", writers, final)
	}
}
