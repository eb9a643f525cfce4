package vfs

import (
	"regexp"
	"strings"

	"github.com/objectfs/docvfs/pkg/errors"
)

// validNamePattern whitelists letters (any script), digits, space, and
// ._-&()[]\ per spec.md §4.3.1. A backslash is accepted as a literal name
// character; it is never treated as a separator.
var validNamePattern = regexp.MustCompile(`^[\p{L}0-9 ._\-&()\[\]\\]+$`)

// Normalize collapses multiple "/", strips leading/trailing "/", and strips
// a single leading "./". The result never has a leading or trailing "/".
// "." parts other than a single leading "./" and ".." parts are preserved
// literally — the engine never resolves parent references.
func Normalize(p string) string {
	p = strings.TrimPrefix(p, "./")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.Trim(p, "/")
	return p
}

// Split returns {parentPath, filename} by splitting at the last "/" of the
// normalized path. parentPath is "" if there is no "/".
func Split(p string) (parentPath, filename string) {
	n := Normalize(p)
	idx := strings.LastIndex(n, "/")
	if idx < 0 {
		return "", n
	}
	return n[:idx], n[idx+1:]
}

// Join concatenates parts with a single "/" and normalizes the result.
func Join(parts ...string) string {
	return Normalize(strings.Join(parts, "/"))
}

// ValidName reports whether s is an acceptable filename component, applied
// per path component by callers before any write.
func ValidName(s string) bool {
	return s != "" && validNamePattern.MatchString(s)
}

// CheckName returns InvalidName if s fails ValidName, nil otherwise.
func CheckName(s string) error {
	if !ValidName(s) {
		return errors.Newf(errors.ErrCodeInvalidName, "invalid name: %q", s)
	}
	return nil
}

// FullPath joins a parent directory and filename into the logical full
// path used by rename cascades and search hits: parentPath + "/" + filename,
// with parentPath = "" meaning "/" + filename.
func FullPath(parentPath, filename string) string {
	if parentPath == "" {
		return "/" + filename
	}
	return parentPath + "/" + filename
}
