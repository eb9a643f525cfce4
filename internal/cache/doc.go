/*
Package cache provides an in-memory LRU cache over directory listings,
sitting in front of the VFS engine's readdir/stat path.

# Overview

Every directory-listing read (readdir, path resolution during lookup)
first checks the cache keyed by (root_key, parent_path). A hit returns the
cached []types.DirEntry without a round trip to Store. A miss falls
through to the VFS engine, which populates the cache with the result.

Every mutating VFS primitive that changes a directory's contents
(create_file, create_folder, rename, delete_file_or_folder, paste_items,
join_files, move_up_down) invalidates the cached listing for the parent(s)
it touched, within the same TxScope that performed the mutation — a
reader can never observe a stale listing alongside a committed write.

# Usage

	dirCache := cache.NewDirCache(cache.DefaultConfig())

	if entries, ok := dirCache.Get(rootKey, parentPath); ok {
		return entries, nil
	}

	entries, err := store.Readdir(ctx, rootKey, parentPath)
	if err != nil {
		return nil, err
	}
	dirCache.Put(rootKey, parentPath, entries)
	return entries, nil

	// After a mutation within the same root:
	dirCache.Invalidate(rootKey, parentPath)

# Eviction

The cache is a plain LRU bounded by entry count (Config.MaxEntries), with
an optional TTL as a second line of defense against a missed invalidation.
Eviction tracking uses container/list, identical in structure to a
byte-range LRU — only the value type and cache key changed.

# Thread Safety

DirCache is safe for concurrent use; all methods take the cache's mutex.
*/
package cache
