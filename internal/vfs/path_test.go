package vfs

import "testing"

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"/":             "",
		"a/b":           "a/b",
		"/a/b/":         "a/b",
		"a//b///c":      "a/b/c",
		"./a/b":         "a/b",
		"a/../b":        "a/../b", // .. preserved literally
		"a/./b":         "a/./b", // "." other than leading "./" preserved
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in, parent, name string
	}{
		{"file.txt", "", "file.txt"},
		{"/a/b/file.txt", "a/b", "file.txt"},
		{"a/file.txt", "a", "file.txt"},
	}
	for _, tt := range tests {
		p, n := Split(tt.in)
		if p != tt.parent || n != tt.name {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tt.in, p, n, tt.parent, tt.name)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("a", "b", "c.txt"); got != "a/b/c.txt" {
		t.Errorf("Join = %q, want a/b/c.txt", got)
	}
	if got := Join("", "b"); got != "b" {
		t.Errorf("Join with empty root = %q, want b", got)
	}
}

func TestValidName(t *testing.T) {
	valid := []string{"file.txt", "My Notes (2024).md", "résumé.txt", "a_b-c[1].json"}
	for _, v := range valid {
		if !ValidName(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}

	invalid := []string{"", "a/b", "a*b", "a<b>c", "a|b"}
	for _, v := range invalid {
		if ValidName(v) {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}

func TestFullPath(t *testing.T) {
	if got := FullPath("", "file.txt"); got != "/file.txt" {
		t.Errorf("FullPath with empty parent = %q, want /file.txt", got)
	}
	if got := FullPath("a/b", "c.txt"); got != "a/b/c.txt" {
		t.Errorf("FullPath = %q, want a/b/c.txt", got)
	}
}
