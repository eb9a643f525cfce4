// Package vfs implements the file-system primitives of spec.md §4.3: path
// handling, node CRUD, rename-with-cascade, ordinal management, and search.
// Each primitive consults the ambient txscope so that a caller running
// inside a TxScope sees its own writes, while a caller outside one runs
// against the shared pool in auto-commit mode.
package vfs

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/objectfs/docvfs/internal/store"
	"github.com/objectfs/docvfs/internal/txscope"
	"github.com/objectfs/docvfs/pkg/errors"
	"github.com/objectfs/docvfs/pkg/types"
)

// Engine implements the VFS primitives against a Store, fronted by an
// optional directory-listing cache.
type Engine struct {
	store   *store.Store
	cache   types.Cache
	metrics types.MetricsCollector
}

// NewEngine constructs a VFS engine. cache and metrics may be nil.
func NewEngine(s *store.Store, cache types.Cache, metrics types.MetricsCollector) *Engine {
	return &Engine{store: s, cache: cache, metrics: metrics}
}

// client returns the ambient TxScope's connection if one is active,
// otherwise the shared pool (auto-commit), per spec.md §4.2.
func (e *Engine) client(ctx context.Context) store.Querier {
	if c := txscope.CurrentClient(ctx); c != nil {
		return c
	}
	return e.store.Pool()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// mapPGError translates a raw pgx/postgres error into a DocVFSError. Errors
// that are already DocVFSError (validation failures raised before the
// query) pass through unchanged.
func mapPGError(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.DocVFSError); ok {
		return err
	}
	if err == pgx.ErrNoRows {
		return errors.Newf(errors.ErrCodeNotFound, "%s: not found", op)
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // unique_violation
			return errors.Newf(errors.ErrCodeAlreadyExists, "%s: already exists", op)
		}
	}
	return errors.Newf(errors.ErrCodeInternalError, "%s: %v", op, err)
}

// EnsurePath idempotently creates every missing directory along fullPath.
// Empty string and "/" return success without change. Ordinal selection for
// any newly inserted directory is max(sibling ordinal)+1, or 0 if empty.
func (e *Engine) EnsurePath(ctx context.Context, owner int64, fullPath, rootKey string) (bool, error) {
	norm := Normalize(fullPath)
	if norm == "" {
		return true, nil
	}

	segments := splitSegments(norm)
	parent := ""
	for _, name := range segments {
		if !ValidName(name) {
			return false, errors.Newf(errors.ErrCodeInvalidName, "invalid path segment: %q", name)
		}
		exists, err := e.Exists(ctx, parent, name, rootKey)
		if err != nil {
			return false, err
		}
		if !exists {
			if _, err := e.mkdirRow(ctx, owner, parent, name, rootKey, nil, false, false); err != nil {
				return false, err
			}
		}
		parent = Join(parent, name)
	}
	return true, nil
}

func splitSegments(norm string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(norm); i++ {
		if i == len(norm) || norm[i] == '/' {
			if i > start {
				segs = append(segs, norm[start:i])
			}
			start = i + 1
		}
	}
	return segs
}

// Mkdir creates one directory row per spec.md §4.3.3.
func (e *Engine) Mkdir(ctx context.Context, owner int64, parentPath, name, rootKey string, ordinal *uint32, isPublic, forceUnique bool) (string, error) {
	if !ValidName(name) {
		return "", errors.Newf(errors.ErrCodeInvalidName, "invalid name: %q", name)
	}
	exists, err := e.Exists(ctx, parentPath, name, rootKey)
	if err != nil {
		return "", err
	}
	if exists && !forceUnique {
		return "", errors.Newf(errors.ErrCodeAlreadyExists, "%s already exists", FullPath(parentPath, name))
	}
	return e.mkdirRow(ctx, owner, parentPath, name, rootKey, ordinal, isPublic, forceUnique)
}

func (e *Engine) mkdirRow(ctx context.Context, owner int64, parentPath, name, rootKey string, ordinal *uint32, isPublic, forceUnique bool) (string, error) {
	ord, err := e.resolveOrdinal(ctx, parentPath, rootKey, ordinal)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := nowMillis()
	_, err = e.client(ctx).Exec(ctx, `
		INSERT INTO nodes (uuid, owner_id, root_key, parent_path, filename, ordinal,
		                    is_directory, is_public, is_binary, content_type, size_bytes,
		                    created_time, modified_time)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, FALSE, '', 0, $8, $8)`,
		id, owner, rootKey, parentPath, name, ord, isPublic, now)
	if err != nil {
		return "", mapPGError(err, "mkdir")
	}
	e.invalidate(rootKey, parentPath)
	return id, nil
}

func (e *Engine) resolveOrdinal(ctx context.Context, parentPath, rootKey string, ordinal *uint32) (uint32, error) {
	if ordinal != nil {
		return *ordinal, nil
	}
	var max *int64
	row := e.client(ctx).QueryRow(ctx,
		`SELECT MAX(ordinal) FROM nodes WHERE root_key = $1 AND parent_path = $2`, rootKey, parentPath)
	if err := row.Scan(&max); err != nil {
		return 0, mapPGError(err, "resolve_ordinal")
	}
	if max == nil {
		return 0, nil
	}
	return uint32(*max) + 1, nil
}

// WriteTextFile writes (or overwrites) a text file, per spec.md §4.3.4.
func (e *Engine) WriteTextFile(ctx context.Context, owner int64, parentPath, name, content, rootKey string, ordinal *uint32, contentType string, overwrite bool) (string, error) {
	return e.writeFile(ctx, owner, parentPath, name, rootKey, ordinal, contentType, overwrite, &content, nil)
}

// WriteBinaryFile writes (or overwrites) a binary file, per spec.md §4.3.4.
func (e *Engine) WriteBinaryFile(ctx context.Context, owner int64, parentPath, name string, content []byte, rootKey string, ordinal *uint32, contentType string, overwrite bool) (string, error) {
	return e.writeFile(ctx, owner, parentPath, name, rootKey, ordinal, contentType, overwrite, nil, content)
}

func (e *Engine) writeFile(ctx context.Context, owner int64, parentPath, name, rootKey string, ordinal *uint32, contentType string, overwrite bool, text *string, binary []byte) (string, error) {
	if !ValidName(name) {
		return "", errors.Newf(errors.ErrCodeInvalidName, "invalid name: %q", name)
	}
	if _, err := e.EnsurePath(ctx, owner, parentPath, rootKey); err != nil {
		return "", err
	}

	existing, err := e.Stat(ctx, parentPath, name, rootKey)
	if err != nil {
		return "", err
	}

	isBinary := binary != nil
	size := int64(len(binary))
	if text != nil {
		size = int64(len(*text))
	}
	now := nowMillis()

	if existing != nil {
		if !overwrite {
			return "", errors.Newf(errors.ErrCodeAlreadyExists, "%s already exists", FullPath(parentPath, name))
		}
		_, err := e.client(ctx).Exec(ctx, `
			UPDATE nodes
			SET content_text = $1, content_binary = $2, is_binary = $3,
			    content_type = $4, size_bytes = $5, modified_time = $6
			WHERE root_key = $7 AND parent_path = $8 AND filename = $9`,
			text, binary, isBinary, contentType, size, now, rootKey, parentPath, name)
		if err != nil {
			return "", mapPGError(err, "write_file")
		}
		e.invalidate(rootKey, parentPath)
		return existing.UUID, nil
	}

	ord, err := e.resolveOrdinal(ctx, parentPath, rootKey, ordinal)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = e.client(ctx).Exec(ctx, `
		INSERT INTO nodes (uuid, owner_id, root_key, parent_path, filename, ordinal,
		                    is_directory, is_public, is_binary, content_text, content_binary,
		                    content_type, size_bytes, created_time, modified_time)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, $7, $8, $9, $10, $11, $12, $12)`,
		id, owner, rootKey, parentPath, name, ord, isBinary, text, binary, contentType, size, now)
	if err != nil {
		return "", mapPGError(err, "write_file")
	}
	e.invalidate(rootKey, parentPath)
	return id, nil
}

// ReadFile returns the authoritative content column as bytes, per spec.md
// §4.3.5.
func (e *Engine) ReadFile(ctx context.Context, owner int64, parentPath, name, rootKey string) ([]byte, error) {
	row := e.client(ctx).QueryRow(ctx, `
		SELECT owner_id, is_public, is_binary, content_text, content_binary
		FROM nodes WHERE root_key = $1 AND parent_path = $2 AND filename = $3`,
		rootKey, parentPath, name)

	var ownerID int64
	var isPublic, isBinary bool
	var contentText *string
	var contentBinary []byte
	if err := row.Scan(&ownerID, &isPublic, &isBinary, &contentText, &contentBinary); err != nil {
		return nil, mapPGError(err, "read_file")
	}

	if owner != ownerID && owner != 0 && !isPublic {
		return nil, errors.Newf(errors.ErrCodeNotAuthorized, "not authorized to read %s", FullPath(parentPath, name))
	}

	if isBinary {
		return contentBinary, nil
	}
	if contentText == nil {
		return []byte{}, nil
	}
	return []byte(*contentText), nil
}

// Exists reports whether (parentPath, name) exists, per spec.md §4.3.6.
// Pure lookup; no authorization.
func (e *Engine) Exists(ctx context.Context, parentPath, name, rootKey string) (bool, error) {
	var one int
	row := e.client(ctx).QueryRow(ctx,
		`SELECT 1 FROM nodes WHERE root_key = $1 AND parent_path = $2 AND filename = $3`,
		rootKey, parentPath, name)
	err := row.Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapPGError(err, "exists")
	}
	return true, nil
}

// Stat returns the full node row, or nil if missing, per spec.md §4.3.6.
// Pure lookup; no authorization.
func (e *Engine) Stat(ctx context.Context, parentPath, name, rootKey string) (*types.Node, error) {
	row := e.client(ctx).QueryRow(ctx, `
		SELECT id, uuid, owner_id, root_key, parent_path, filename, ordinal,
		       is_directory, is_public, is_binary, content_text, content_binary,
		       content_type, size_bytes, created_time, modified_time
		FROM nodes WHERE root_key = $1 AND parent_path = $2 AND filename = $3`,
		rootKey, parentPath, name)

	n, err := scanNode(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapPGError(err, "stat")
	}
	return n, nil
}

// StatByUUID looks up a node by its stable identifier, used by DocService
// when resolving an insertAfter reference.
func (e *Engine) StatByUUID(ctx context.Context, id, rootKey string) (*types.Node, error) {
	row := e.client(ctx).QueryRow(ctx, `
		SELECT id, uuid, owner_id, root_key, parent_path, filename, ordinal,
		       is_directory, is_public, is_binary, content_text, content_binary,
		       content_type, size_bytes, created_time, modified_time
		FROM nodes WHERE root_key = $1 AND uuid = $2`, rootKey, id)

	n, err := scanNode(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapPGError(err, "stat_by_uuid")
	}
	return n, nil
}

func scanNode(row pgx.Row) (*types.Node, error) {
	var n types.Node
	err := row.Scan(&n.ID, &n.UUID, &n.OwnerID, &n.RootKey, &n.ParentPath, &n.Filename, &n.Ordinal,
		&n.IsDirectory, &n.IsPublic, &n.IsBinary, &n.ContentText, &n.ContentBinary,
		&n.ContentType, &n.SizeBytes, &n.CreatedTime, &n.ModifiedTime)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Readdir returns all children of parentPath ordered by (ordinal ASC,
// filename ASC), per spec.md §4.3.7. Results come from the directory cache
// when present.
func (e *Engine) Readdir(ctx context.Context, owner int64, parentPath, rootKey string) ([]types.DirEntry, error) {
	if e.cache != nil {
		if entries, ok := e.cache.Get(rootKey, parentPath); ok {
			if e.metrics != nil {
				e.metrics.RecordCacheHit(rootKey+":"+parentPath, int64(len(entries)))
			}
			return entries, nil
		}
		if e.metrics != nil {
			e.metrics.RecordCacheMiss(rootKey+":"+parentPath, 0)
		}
	}

	rows, err := e.client(ctx).Query(ctx, `
		SELECT uuid, filename, is_directory, is_public, ordinal, size_bytes,
		       content_type, created_time, modified_time
		FROM nodes WHERE root_key = $1 AND parent_path = $2
		ORDER BY ordinal ASC, filename ASC`, rootKey, parentPath)
	if err != nil {
		return nil, mapPGError(err, "readdir")
	}
	defer rows.Close()

	var entries []types.DirEntry
	for rows.Next() {
		var d types.DirEntry
		if err := rows.Scan(&d.UUID, &d.Filename, &d.IsDirectory, &d.IsPublic, &d.Ordinal,
			&d.SizeBytes, &d.ContentType, &d.CreatedTime, &d.ModifiedTime); err != nil {
			return nil, mapPGError(err, "readdir")
		}
		entries = append(entries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPGError(err, "readdir")
	}

	if e.cache != nil {
		e.cache.Put(rootKey, parentPath, entries)
	}
	return entries, nil
}

// Rename performs an atomic move-and-rename with cascade, per spec.md
// §4.3.8. Failures that are part of the documented control flow (not
// found, already exists) are reported via the returned RenameResult rather
// than as an error.
func (e *Engine) Rename(ctx context.Context, owner int64, oldParent, oldName, newParent, newName, rootKey string) (types.RenameResult, error) {
	src, err := e.Stat(ctx, oldParent, oldName, rootKey)
	if err != nil {
		return types.RenameResult{}, err
	}
	if src == nil {
		return types.RenameResult{Success: false, Diagnostic: "not found"}, nil
	}
	if owner != src.OwnerID && owner != 0 {
		return types.RenameResult{}, errors.Newf(errors.ErrCodeNotAuthorized, "not authorized to rename %s", FullPath(oldParent, oldName))
	}

	dstExists, err := e.Exists(ctx, newParent, newName, rootKey)
	if err != nil {
		return types.RenameResult{}, err
	}
	if dstExists {
		return types.RenameResult{Success: false, Diagnostic: "already exists"}, nil
	}

	now := nowMillis()
	_, err = e.client(ctx).Exec(ctx, `
		UPDATE nodes SET parent_path = $1, filename = $2, modified_time = $3
		WHERE root_key = $4 AND parent_path = $5 AND filename = $6`,
		newParent, newName, now, rootKey, oldParent, oldName)
	if err != nil {
		return types.RenameResult{}, mapPGError(err, "rename")
	}

	if src.IsDirectory {
		oldPrefix := FullPath(oldParent, oldName)
		newPrefix := FullPath(newParent, newName)
		if _, err := e.client(ctx).Exec(ctx,
			`SELECT vfs_rename_cascade($1, $2, $3)`, rootKey, stripLeadingSlash(oldPrefix), stripLeadingSlash(newPrefix)); err != nil {
			return types.RenameResult{}, mapPGError(err, "rename_cascade")
		}
	}

	e.invalidate(rootKey, oldParent)
	e.invalidate(rootKey, newParent)
	return types.RenameResult{Success: true}, nil
}

func stripLeadingSlash(p string) string {
	return Normalize(p)
}

// Unlink deletes a file row after the ownership/admin check, per spec.md
// §4.3.9.
func (e *Engine) Unlink(ctx context.Context, owner int64, parentPath, name, rootKey string) error {
	n, err := e.Stat(ctx, parentPath, name, rootKey)
	if err != nil {
		return err
	}
	if n == nil {
		return errors.Newf(errors.ErrCodeNotFound, "%s not found", FullPath(parentPath, name))
	}
	if n.IsDirectory {
		return errors.Newf(errors.ErrCodeIsADirectory, "%s is a directory", FullPath(parentPath, name))
	}
	if owner != n.OwnerID && owner != 0 {
		return errors.Newf(errors.ErrCodeNotAuthorized, "not authorized to delete %s", FullPath(parentPath, name))
	}

	_, err = e.client(ctx).Exec(ctx,
		`DELETE FROM nodes WHERE root_key = $1 AND parent_path = $2 AND filename = $3`,
		rootKey, parentPath, name)
	if err != nil {
		return mapPGError(err, "unlink")
	}
	e.invalidate(rootKey, parentPath)
	return nil
}

// Rmdir deletes a directory, optionally recursively, per spec.md §4.3.10.
func (e *Engine) Rmdir(ctx context.Context, owner int64, parentPath, name, rootKey string, recursive, force bool) error {
	n, err := e.Stat(ctx, parentPath, name, rootKey)
	if err != nil {
		return err
	}
	if n == nil {
		if force {
			return nil
		}
		return errors.Newf(errors.ErrCodeNotFound, "%s not found", FullPath(parentPath, name))
	}
	if !n.IsDirectory {
		return errors.Newf(errors.ErrCodeNotADirectory, "%s is not a directory", FullPath(parentPath, name))
	}
	if parentPath == "" && name == "" {
		return errors.New(errors.ErrCodeCannotDeleteRoot, "cannot delete root directory")
	}
	if owner != n.OwnerID && owner != 0 {
		return errors.Newf(errors.ErrCodeNotAuthorized, "not authorized to delete %s", FullPath(parentPath, name))
	}

	fullPath := stripLeadingSlash(FullPath(parentPath, name))

	if !recursive {
		var count int
		row := e.client(ctx).QueryRow(ctx,
			`SELECT COUNT(*) FROM nodes WHERE root_key = $1 AND parent_path = $2`, rootKey, fullPath)
		if err := row.Scan(&count); err != nil {
			return mapPGError(err, "rmdir")
		}
		if count > 0 {
			return errors.Newf(errors.ErrCodeNotEmpty, "%s is not empty", FullPath(parentPath, name))
		}
		_, err = e.client(ctx).Exec(ctx,
			`DELETE FROM nodes WHERE root_key = $1 AND parent_path = $2 AND filename = $3`,
			rootKey, parentPath, name)
		if err != nil {
			return mapPGError(err, "rmdir")
		}
		e.invalidate(rootKey, parentPath)
		return nil
	}

	_, err = e.client(ctx).Exec(ctx, `
		DELETE FROM nodes
		WHERE root_key = $1
		  AND (parent_path = $2 OR parent_path LIKE $2 || '/%')`, rootKey, fullPath)
	if err != nil {
		return mapPGError(err, "rmdir")
	}
	_, err = e.client(ctx).Exec(ctx,
		`DELETE FROM nodes WHERE root_key = $1 AND parent_path = $2 AND filename = $3`,
		rootKey, parentPath, name)
	if err != nil {
		return mapPGError(err, "rmdir")
	}
	e.invalidate(rootKey, parentPath)
	return nil
}

// Rm dispatches to Unlink or Rmdir after a Stat, per spec.md §4.3.11. It
// refuses to delete the logical root with CannotDeleteRoot.
func (e *Engine) Rm(ctx context.Context, owner int64, path, rootKey string, recursive, force bool) error {
	norm := Normalize(path)
	if norm == "" {
		return errors.New(errors.ErrCodeCannotDeleteRoot, "cannot delete root")
	}
	parentPath, name := Split(norm)
	return e.rmDispatch(ctx, owner, parentPath, name, rootKey, recursive, force)
}

func (e *Engine) rmDispatch(ctx context.Context, owner int64, parentPath, name, rootKey string, recursive, force bool) error {
	n, err := e.Stat(ctx, parentPath, name, rootKey)
	if err != nil {
		return err
	}
	if n == nil {
		if force {
			return nil
		}
		return errors.Newf(errors.ErrCodeNotFound, "%s not found", FullPath(parentPath, name))
	}
	if n.IsDirectory {
		return e.Rmdir(ctx, owner, parentPath, name, rootKey, recursive, force)
	}
	return e.Unlink(ctx, owner, parentPath, name, rootKey)
}

// ShiftOrdinalsDown adds slots to every child of parentPath whose ordinal
// is >= insertOrdinal, per spec.md §4.3.12.
func (e *Engine) ShiftOrdinalsDown(ctx context.Context, parentPath string, insertOrdinal, slots uint32, rootKey string) error {
	_, err := e.client(ctx).Exec(ctx,
		`SELECT vfs_shift_ordinals_down($1, $2, $3, $4)`, rootKey, parentPath, int32(insertOrdinal), int32(slots))
	if err != nil {
		return mapPGError(err, "shift_ordinals_down")
	}
	e.invalidate(rootKey, parentPath)
	return nil
}

// GetDescendants returns the node plus every descendant, per spec.md
// §4.3.13.
func (e *Engine) GetDescendants(ctx context.Context, nodeUUID, rootPath, rootKey string) ([]types.Node, error) {
	rows, err := e.client(ctx).Query(ctx, `SELECT * FROM vfs_get_descendants($1, $2, $3)`, rootKey, nodeUUID, rootPath)
	if err != nil {
		return nil, mapPGError(err, "get_descendants")
	}
	defer rows.Close()

	var nodes []types.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, mapPGError(err, "get_descendants")
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// CheckAuth reports whether owner may access (parentPath, name), per
// spec.md §4.3.14. publicOk must be passed explicitly for the is_public
// flag to be consulted at all.
func (e *Engine) CheckAuth(ctx context.Context, owner int64, parentPath, name, rootKey string, publicOk bool) (bool, error) {
	n, err := e.Stat(ctx, parentPath, name, rootKey)
	if err != nil {
		return false, err
	}
	if n == nil {
		return false, nil
	}
	if owner == n.OwnerID || owner == 0 {
		return true, nil
	}
	if publicOk && n.IsPublic {
		return true, nil
	}
	return false, nil
}

// SearchText matches non-binary descendants of path whose content_text
// contains query, per spec.md §4.3.15. Multi-term queries are split on
// spaces (a quoted substring counts as one term) and each term is
// matched independently; mode then decides how the per-term hit sets
// combine: MATCH_ANY unions them, MATCH_ALL intersects them.
func (e *Engine) SearchText(ctx context.Context, query, path, rootKey string, mode types.SearchMode, caseSensitive bool, order types.SearchOrder) ([]types.SearchHit, error) {
	terms := splitSearchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	combined := make(map[string]types.SearchHit)
	for i, term := range terms {
		hits, err := e.searchTextTerm(ctx, term, path, rootKey, caseSensitive)
		if err != nil {
			return nil, err
		}
		termHits := make(map[string]types.SearchHit, len(hits))
		for _, h := range hits {
			termHits[h.UUID] = h
		}

		if i == 0 {
			combined = termHits
			continue
		}
		switch mode {
		case types.MatchAll:
			for uuid := range combined {
				if _, ok := termHits[uuid]; !ok {
					delete(combined, uuid)
				}
			}
		default: // MatchAny
			for uuid, h := range termHits {
				combined[uuid] = h
			}
		}
	}

	hits := make([]types.SearchHit, 0, len(combined))
	for _, h := range combined {
		hits = append(hits, h)
	}
	sortHits(hits, order)
	return hits, nil
}

// searchTextTerm runs vfs_search_text for a single already-split term.
func (e *Engine) searchTextTerm(ctx context.Context, term, path, rootKey string, caseSensitive bool) ([]types.SearchHit, error) {
	rows, err := e.client(ctx).Query(ctx,
		`SELECT uuid, full_path, filename, content_snippet, content_type, size_bytes, modified_time
		 FROM vfs_search_text($1, $2, $3, $4)`, rootKey, path, term, caseSensitive)
	if err != nil {
		return nil, mapPGError(err, "search_text")
	}
	defer rows.Close()

	var hits []types.SearchHit
	for rows.Next() {
		var h types.SearchHit
		if err := rows.Scan(&h.UUID, &h.FullPath, &h.Filename, &h.ContentSnippet, &h.ContentType, &h.SizeBytes, &h.ModifiedTime); err != nil {
			return nil, mapPGError(err, "search_text")
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SearchBinaries matches on filename only, per spec.md §4.3.15.
func (e *Engine) SearchBinaries(ctx context.Context, query, path, rootKey string) ([]types.SearchHit, error) {
	rows, err := e.client(ctx).Query(ctx,
		`SELECT uuid, full_path, filename, content_type, size_bytes, modified_time
		 FROM vfs_search_binaries($1, $2, $3)`, rootKey, path, searchTerm(query))
	if err != nil {
		return nil, mapPGError(err, "search_binaries")
	}
	defer rows.Close()

	var hits []types.SearchHit
	for rows.Next() {
		var h types.SearchHit
		if err := rows.Scan(&h.UUID, &h.FullPath, &h.Filename, &h.ContentType, &h.SizeBytes, &h.ModifiedTime); err != nil {
			return nil, mapPGError(err, "search_binaries")
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// searchTerm strips a single layer of surrounding quotes so a quoted
// substring is treated as one literal term rather than split on spaces —
// the caller is expected to have already split multi-term queries.
func searchTerm(q string) string {
	if len(q) >= 2 && q[0] == '"' && q[len(q)-1] == '"' {
		return q[1 : len(q)-1]
	}
	return q
}

// splitSearchTerms splits a search query into terms for SearchText's
// MATCH_ANY/MATCH_ALL combination. A double-quoted substring is kept as a
// single term with its quotes stripped; everything else is split on
// spaces.
func splitSearchTerms(query string) []string {
	var terms []string
	var b strings.Builder
	inQuotes := false
	for _, r := range query {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			if b.Len() > 0 {
				terms = append(terms, b.String())
				b.Reset()
			}
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		terms = append(terms, b.String())
	}
	return terms
}

func sortHits(hits []types.SearchHit, order types.SearchOrder) {
	switch order {
	case types.OrderName:
		sortByName(hits)
	default:
		sortByModTime(hits)
	}
}

func sortByName(hits []types.SearchHit) {
	for i := 1; i < len(hits); i++ {
		j := i
		for j > 0 && hits[j-1].Filename > hits[j].Filename {
			hits[j-1], hits[j] = hits[j], hits[j-1]
			j--
		}
	}
}

func sortByModTime(hits []types.SearchHit) {
	for i := 1; i < len(hits); i++ {
		j := i
		for j > 0 && hits[j-1].ModifiedTime < hits[j].ModifiedTime {
			hits[j-1], hits[j] = hits[j], hits[j-1]
			j--
		}
	}
}

// SetOrdinal updates a single node's presentation ordinal by UUID, used by
// DocService's move_up_down to swap two siblings without touching any
// other column.
func (e *Engine) SetOrdinal(ctx context.Context, rootKey, nodeUUID string, ordinal uint32) error {
	tag, err := e.client(ctx).Exec(ctx,
		`UPDATE nodes SET ordinal = $1 WHERE root_key = $2 AND uuid = $3`, ordinal, rootKey, nodeUUID)
	if err != nil {
		return mapPGError(err, "set_ordinal")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeNotFound, "node %s not found", nodeUUID)
	}
	n, err := e.nodeParentByUUID(ctx, rootKey, nodeUUID)
	if err == nil && n != "" {
		e.invalidate(rootKey, n)
	}
	return nil
}

// SetPublic updates a single node's is_public flag by UUID.
func (e *Engine) SetPublic(ctx context.Context, rootKey, nodeUUID string, isPublic bool) error {
	tag, err := e.client(ctx).Exec(ctx,
		`UPDATE nodes SET is_public = $1 WHERE root_key = $2 AND uuid = $3`, isPublic, rootKey, nodeUUID)
	if err != nil {
		return mapPGError(err, "set_public")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeNotFound, "node %s not found", nodeUUID)
	}
	n, err := e.nodeParentByUUID(ctx, rootKey, nodeUUID)
	if err == nil && n != "" {
		e.invalidate(rootKey, n)
	}
	return nil
}

func (e *Engine) nodeParentByUUID(ctx context.Context, rootKey, nodeUUID string) (string, error) {
	var parent string
	row := e.client(ctx).QueryRow(ctx, `SELECT parent_path FROM nodes WHERE root_key = $1 AND uuid = $2`, rootKey, nodeUUID)
	if err := row.Scan(&parent); err != nil {
		return "", err
	}
	return parent, nil
}

func (e *Engine) invalidate(rootKey, parentPath string) {
	if e.cache != nil {
		e.cache.Invalidate(rootKey, parentPath)
	}
}
