package vfs

import (
	"testing"

	"github.com/objectfs/docvfs/pkg/types"
)

func TestSplitSegments(t *testing.T) {
	tests := map[string][]string{
		"":        nil,
		"a":       {"a"},
		"a/b/c":   {"a", "b", "c"},
		"a//b":    {"a", "b"},
	}
	for in, want := range tests {
		got := splitSegments(in)
		if len(got) != len(want) {
			t.Fatalf("splitSegments(%q) = %v, want %v", in, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("splitSegments(%q)[%d] = %q, want %q", in, i, got[i], want[i])
			}
		}
	}
}

func TestSearchTerm(t *testing.T) {
	if got := searchTerm(`"hello world"`); got != "hello world" {
		t.Errorf("searchTerm with quotes = %q, want %q", got, "hello world")
	}
	if got := searchTerm("hello"); got != "hello" {
		t.Errorf("searchTerm without quotes = %q, want %q", got, "hello")
	}
}

func TestSplitSearchTerms(t *testing.T) {
	tests := map[string][]string{
		"":                  nil,
		"hello":             {"hello"},
		"hello world":       {"hello", "world"},
		`"hello world"`:     {"hello world"},
		`"hello world" foo`: {"hello world", "foo"},
		"  foo   bar  ":     {"foo", "bar"},
	}
	for in, want := range tests {
		got := splitSearchTerms(in)
		if len(got) != len(want) {
			t.Fatalf("splitSearchTerms(%q) = %v, want %v", in, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("splitSearchTerms(%q)[%d] = %q, want %q", in, i, got[i], want[i])
			}
		}
	}
}

func TestSortByName(t *testing.T) {
	hits := []types.SearchHit{{Filename: "c"}, {Filename: "a"}, {Filename: "b"}}
	sortByName(hits)
	want := []string{"a", "b", "c"}
	for i, h := range hits {
		if h.Filename != want[i] {
			t.Errorf("sortByName[%d] = %q, want %q", i, h.Filename, want[i])
		}
	}
}

func TestSortByModTime(t *testing.T) {
	hits := []types.SearchHit{{ModifiedTime: 1}, {ModifiedTime: 3}, {ModifiedTime: 2}}
	sortByModTime(hits)
	want := []int64{3, 2, 1}
	for i, h := range hits {
		if h.ModifiedTime != want[i] {
			t.Errorf("sortByModTime[%d] = %d, want %d", i, h.ModifiedTime, want[i])
		}
	}
}
