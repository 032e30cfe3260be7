package vocab

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string) []string
		in   string
		want []string
	}{
		{"dataset words", SplitDataset, "The Cat sat.", []string{"the", "cat", "sat", "."}},
		{"dataset digits", SplitDataset, "room 101, floor 3", []string{"room", "101", ",", "floor", "3"}},
		{"dataset drops symbols", SplitDataset, "a#b & c", []string{"a", "b", "c"}},
		{"vocabulary keeps symbols", SplitVocabulary, "a#b & c", []string{"a", "#", "b", "&", "c"}},
		{"unicode letters", SplitDataset, "Ação rápida!", []string{"ação", "rápida", "!"}},
		{"mixed run", SplitDataset, "abc123", []string{"abc", "123"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.fn(tc.in); !slices.Equal(got, tc.want) {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidToken(t *testing.T) {
	t.Parallel()

	for tok, want := range map[string]bool{
		"word":     true,
		"\x01abc":  false,
		"�":   false,
		"":         false,
		"\xff\xfe": false,
	} {
		if got := ValidToken(tok); got != want {
			t.Errorf("ValidToken(%q) = %v, want %v", tok, got, want)
		}
	}
}

func TestBuildSortsAndReservesPad(t *testing.T) {
	t.Parallel()

	v := Build([]string{"the", "cat", "the", "a", Pad, "�"})
	want := []string{Pad, "a", "cat", "the"}
	if got := v.Tokens(); !slices.Equal(got, want) {
		t.Fatalf("Tokens = %q, want %q", got, want)
	}
	if id, ok := v.ID("cat"); !ok || id != 2 {
		t.Fatalf("ID(cat) = %d, %v", id, ok)
	}
	if tok, ok := v.Token(PadID); !ok || tok != Pad {
		t.Fatalf("Token(0) = %q", tok)
	}
	if _, ok := v.Token(4); ok {
		t.Fatal("Token(4) should be out of range")
	}
}

func TestExtendAppendsOnly(t *testing.T) {
	t.Parallel()

	v := Build([]string{"b", "d"})
	added := v.Extend([]string{"d", "c", "a", "c"})
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	want := []string{Pad, "b", "d", "a", "c"}
	if got := v.Tokens(); !slices.Equal(got, want) {
		t.Fatalf("Tokens = %q, want %q", got, want)
	}
	if v.Extend([]string{"a"}) != 0 {
		t.Fatal("re-extending with known tokens should add nothing")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab", "vocab.txt")
	v := Build([]string{"olá", "mundo", "."})
	if err := v.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(got.Tokens(), v.Tokens()) {
		t.Fatalf("Tokens = %q, want %q", got.Tokens(), v.Tokens())
	}
}

func TestLoadSkipsInvalidLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab.txt")
	body := "[PAD]\nthe\n\n\x02bad\n  cat  \nthe\n�\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{Pad, "the", "cat"}
	if got := v.Tokens(); !slices.Equal(got, want) {
		t.Fatalf("Tokens = %q, want %q", got, want)
	}
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("[PAD]\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}
