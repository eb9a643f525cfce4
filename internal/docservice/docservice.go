// Package docservice orchestrates the composite operations of spec.md
// §4.4. Every handler opens a single TxScope around its work so that a
// multi-step operation (shift ordinals, then write; rename, then
// overwrite; delete many, then insert one) is atomic.
package docservice

import (
	"context"
	"path"
	"strings"

	"github.com/objectfs/docvfs/internal/store"
	"github.com/objectfs/docvfs/internal/txscope"
	"github.com/objectfs/docvfs/internal/vfs"
	"github.com/objectfs/docvfs/pkg/errors"
	"github.com/objectfs/docvfs/pkg/types"
)

// DocService wires the VFS engine behind the per-operation contracts the
// outer REST/RPC layer calls.
type DocService struct {
	store  *store.Store
	engine *vfs.Engine
}

// New constructs a DocService over the given Store and Engine.
func New(s *store.Store, engine *vfs.Engine) *DocService {
	return &DocService{store: s, engine: engine}
}

func defaultExt(name, ext string) string {
	if strings.Contains(path.Base(name), ".") {
		return name
	}
	return name + ext
}

// targetOrdinal resolves the insertion ordinal for create_file/create_folder:
// 0 (top) when insertAfter is empty, else the referenced node's ordinal+1.
func (d *DocService) targetOrdinal(ctx context.Context, folder, insertAfter, rootKey string) (uint32, error) {
	if insertAfter == "" {
		return 0, nil
	}
	n, err := d.engine.Stat(ctx, folder, insertAfter, rootKey)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, errors.Newf(errors.ErrCodeNotFound, "%s not found in %s", insertAfter, folder)
	}
	return n.Ordinal + 1, nil
}

// CreateFile implements spec.md §4.4's create_file contract.
func (d *DocService) CreateFile(ctx context.Context, req types.CreateFileRequest) (string, error) {
	folder := vfs.Normalize(req.Folder)
	var id string
	err := txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		if folder != "" {
			dir, err := d.statFolder(ctx, folder, req.RootKey)
			if err != nil {
				return err
			}
			if dir == nil || !dir.IsDirectory {
				return errors.Newf(errors.ErrCodeNotADirectory, "%s is not a directory", folder)
			}
		}

		ord, err := d.targetOrdinal(ctx, folder, req.InsertAfter, req.RootKey)
		if err != nil {
			return err
		}
		if err := d.engine.ShiftOrdinalsDown(ctx, folder, ord, 1, req.RootKey); err != nil {
			return err
		}

		name := defaultExt(req.Name, ".md")
		newID, err := d.engine.WriteTextFile(ctx, req.Owner, folder, name, "", req.RootKey, &ord, "text/markdown", false)
		if err != nil {
			return err
		}
		id = newID
		return nil
	})
	return id, err
}

// statFolder looks up a directory by its full logical path (parent + name),
// used where the request carries only the folder path rather than a
// separately-split (parent, name) pair.
func (d *DocService) statFolder(ctx context.Context, folder, rootKey string) (*types.Node, error) {
	parent, name := vfs.Split(folder)
	return d.engine.Stat(ctx, parent, name, rootKey)
}

// CreateFolder implements spec.md §4.4's create_folder contract.
func (d *DocService) CreateFolder(ctx context.Context, req types.CreateFolderRequest) (string, error) {
	folder := vfs.Normalize(req.Folder)
	var id string
	err := txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		if folder != "" {
			dir, err := d.statFolder(ctx, folder, req.RootKey)
			if err != nil {
				return err
			}
			if dir == nil || !dir.IsDirectory {
				return errors.Newf(errors.ErrCodeNotADirectory, "%s is not a directory", folder)
			}
		}

		ord, err := d.targetOrdinal(ctx, folder, req.InsertAfter, req.RootKey)
		if err != nil {
			return err
		}
		if err := d.engine.ShiftOrdinalsDown(ctx, folder, ord, 1, req.RootKey); err != nil {
			return err
		}

		newID, err := d.engine.Mkdir(ctx, req.Owner, folder, req.Name, req.RootKey, &ord, false, false)
		if err != nil {
			return err
		}
		id = newID
		return nil
	})
	return id, err
}

// SaveFile implements spec.md §4.4's save_file contract.
func (d *DocService) SaveFile(ctx context.Context, req types.SaveFileRequest) error {
	folder := vfs.Normalize(req.Folder)
	return txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		var dir *types.Node
		var err error
		if folder != "" {
			dir, err = d.statFolder(ctx, folder, req.RootKey)
			if err != nil {
				return err
			}
			if dir == nil {
				return errors.Newf(errors.ErrCodeNotFound, "%s not found", folder)
			}
			if !dir.IsDirectory {
				return errors.Newf(errors.ErrCodeNotADirectory, "%s is not a directory", folder)
			}
		}

		targetName := req.Filename
		if req.NewFileName != "" {
			newName := defaultExt(req.NewFileName, ".md")
			if newName != req.Filename {
				result, err := d.engine.Rename(ctx, req.Owner, folder, req.Filename, folder, newName, req.RootKey)
				if err != nil {
					return err
				}
				if !result.Success {
					return errors.Newf(errors.ErrCodeConflict, "rename %s -> %s: %s", req.Filename, newName, result.Diagnostic)
				}
				targetName = newName
			}
		}

		_, err = d.engine.WriteTextFile(ctx, req.Owner, folder, targetName, req.Content, req.RootKey, nil, "text/markdown", true)
		return err
	})
}

// PasteItems implements spec.md §4.4's paste_items contract: move a list
// of source paths to targetFolder preserving relative order, shifting
// ordinals to make room. Per-item failures are reported, not raised.
func (d *DocService) PasteItems(ctx context.Context, req types.PasteItemsRequest) ([]types.PasteItemResult, error) {
	targetFolder := vfs.Normalize(req.TargetFolder)
	var results []types.PasteItemResult

	err := txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		if err := d.engine.ShiftOrdinalsDown(ctx, targetFolder, req.TargetOrdinal, uint32(len(req.Items)), req.RootKey); err != nil {
			return err
		}

		ordinal := req.TargetOrdinal
		for _, item := range req.Items {
			srcParent, srcName := vfs.Split(item.SourcePath)
			result, err := d.engine.Rename(ctx, req.Owner, srcParent, srcName, targetFolder, srcName, req.RootKey)
			if err != nil {
				results = append(results, types.PasteItemResult{SourcePath: item.SourcePath, Success: false, Error: err.Error()})
				continue
			}
			if !result.Success {
				results = append(results, types.PasteItemResult{SourcePath: item.SourcePath, Success: false, Error: result.Diagnostic})
				continue
			}
			moved, err := d.engine.Stat(ctx, targetFolder, srcName, req.RootKey)
			if err != nil {
				return err
			}
			if moved != nil {
				if err := d.engine.SetOrdinal(ctx, req.RootKey, moved.UUID, ordinal); err != nil {
					return err
				}
			}
			results = append(results, types.PasteItemResult{SourcePath: item.SourcePath, Success: true})
			ordinal++
		}
		return nil
	})
	return results, err
}

// JoinFiles implements spec.md §4.4's join_files contract: concatenate the
// text contents of filenames in order (newline-separated) and write the
// result over the first file (with the default ".md" extension applied to
// its name), then unlink the remaining files, atomically.
func (d *DocService) JoinFiles(ctx context.Context, req types.JoinFilesRequest) (string, error) {
	if len(req.Filenames) == 0 {
		return "", errors.New(errors.ErrCodeInvalidPath, "join_files requires at least one filename")
	}
	folder := vfs.Normalize(req.Folder)
	var id string

	err := txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		var builder strings.Builder
		for i, name := range req.Filenames {
			content, err := d.engine.ReadFile(ctx, req.Owner, folder, name, req.RootKey)
			if err != nil {
				return err
			}
			if i > 0 {
				builder.WriteString("\n")
			}
			builder.Write(content)
		}

		joinedName := defaultExt(req.Filenames[0], ".md")
		newID, err := d.engine.WriteTextFile(ctx, req.Owner, folder, joinedName, builder.String(), req.RootKey, nil, "text/markdown", true)
		if err != nil {
			return err
		}
		id = newID

		for _, name := range req.Filenames[1:] {
			if err := d.engine.Unlink(ctx, req.Owner, folder, name, req.RootKey); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

// MoveUpDown implements spec.md §4.4's move_up_down contract: swap
// ordinals with the immediate neighbor. No-op if already at the extreme.
func (d *DocService) MoveUpDown(ctx context.Context, req types.MoveUpDownRequest) error {
	folder := vfs.Normalize(req.Folder)
	return txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		entries, err := d.engine.Readdir(ctx, req.Owner, folder, req.RootKey)
		if err != nil {
			return err
		}

		idx := -1
		for i, e := range entries {
			if e.Filename == req.Filename {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errors.Newf(errors.ErrCodeNotFound, "%s not found in %s", req.Filename, folder)
		}

		var neighbor int
		switch req.Direction {
		case types.MoveUp:
			neighbor = idx - 1
		case types.MoveDown:
			neighbor = idx + 1
		default:
			return errors.Newf(errors.ErrCodeInvalidPath, "invalid direction %q", req.Direction)
		}
		if neighbor < 0 || neighbor >= len(entries) {
			return nil
		}

		a, b := entries[idx], entries[neighbor]
		if err := d.engine.SetOrdinal(ctx, req.RootKey, a.UUID, b.Ordinal); err != nil {
			return err
		}
		return d.engine.SetOrdinal(ctx, req.RootKey, b.UUID, a.Ordinal)
	})
}

// RenameFolder implements spec.md §4.4's rename_folder contract: a thin
// wrapper over Rename with path normalization.
func (d *DocService) RenameFolder(ctx context.Context, req types.RenameFolderRequest) (types.RenameResult, error) {
	oldPath := vfs.Normalize(req.OldPath)
	parent, name := vfs.Split(oldPath)
	var result types.RenameResult
	err := txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		r, err := d.engine.Rename(ctx, req.Owner, parent, name, parent, req.NewName, req.RootKey)
		result = r
		return err
	})
	return result, err
}

// DeleteFileOrFolder implements spec.md §4.4's delete_file_or_folder
// contract: a thin wrapper over Rm with path normalization and admin
// override (owner=0 passed through to the engine's ownership check).
func (d *DocService) DeleteFileOrFolder(ctx context.Context, req types.DeleteRequest) error {
	return txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		return d.engine.Rm(ctx, req.Owner, req.Path, req.RootKey, req.Recursive, req.Force)
	})
}

// SetPublic implements spec.md §4.4's set_public contract.
func (d *DocService) SetPublic(ctx context.Context, req types.SetPublicRequest) error {
	parent, name := vfs.Split(req.Path)
	return txscope.RunTrans(ctx, d.store, func(ctx context.Context) error {
		n, err := d.engine.Stat(ctx, parent, name, req.RootKey)
		if err != nil {
			return err
		}
		if n == nil {
			return errors.Newf(errors.ErrCodeNotFound, "%s not found", req.Path)
		}
		if req.Owner != n.OwnerID && req.Owner != 0 {
			return errors.Newf(errors.ErrCodeNotAuthorized, "not authorized to change visibility of %s", req.Path)
		}
		return d.engine.SetPublic(ctx, req.RootKey, n.UUID, req.IsPublic)
	})
}
