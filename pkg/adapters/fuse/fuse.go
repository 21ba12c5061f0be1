// Package fuse mounts a workspace file system as a read-only directory tree.
//
// The mount is live: every lookup, listing and read goes to the current state, so files
// grow on disk while the reply streams. A hidden .sakura directory exposes the project
// title, the active file and the dependency list.
package fuse

import (
	"context"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/vfs"
)

// MetaDir is the name of the metadata directory at the mount root.
const MetaDir = ".sakura"

// Source is the state the mount reads. *vfs.FileSystem satisfies it.
type Source interface {
	FileTree() []*domain.FileTreeNode
	GetFile(path string) (domain.File, bool)
	ActiveFile() string
	ProjectTitle() string
	Dependencies() []string
	Version() uint64
}

// Config specifies how the project is exposed.
type Config struct {
	// StartTime is used for timestamps. If zero, time.Now() is used.
	StartTime time.Time
}

func (c *Config) startTime() time.Time {
	if c == nil || c.StartTime.IsZero() {
		return time.Now()
	}
	return c.StartTime
}

// NewRoot creates the root node of the project tree.
func NewRoot(src Source, config *Config) fs.InodeEmbedder {
	return &dirNode{src: src, cache: &treeCache{}, config: config}
}

// treeCache holds the folder tree derived for one Source version, so a directory walk
// does not rebuild it for every lookup. A nil cache always rebuilds.
type treeCache struct {
	mu      sync.Mutex
	built   bool
	version uint64
	tree    []*domain.FileTreeNode
}

func (c *treeCache) get(src Source) []*domain.FileTreeNode {
	if c == nil {
		return src.FileTree()
	}
	// Read the version first: the tree built after it is at least that recent.
	v := src.Version()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.built || c.version != v {
		c.tree = src.FileTree()
		c.version = v
		c.built = true
	}
	return c.tree
}

// Mount mounts src at mountpoint. Kernel caching is disabled so streamed content shows up
// on the next read. The caller waits on or unmounts the returned server.
func Mount(mountpoint string, src Source, config *Config, debug bool) (*fuse.Server, error) {
	opts := &fs.Options{}
	opts.Debug = debug
	opts.FsName = "sakura"
	opts.Name = "sakura"
	zero := time.Duration(0)
	opts.EntryTimeout = &zero
	opts.AttrTimeout = &zero
	opts.NegativeTimeout = &zero
	return fs.Mount(mountpoint, NewRoot(src, config), opts)
}

// --- dirNode: project folder ---

type dirNode struct {
	fs.Inode
	src    Source
	cache  *treeCache
	path   string
	config *Config
}

var _ = (fs.NodeLookuper)((*dirNode)(nil))
var _ = (fs.NodeReaddirer)((*dirNode)(nil))
var _ = (fs.NodeGetattrer)((*dirNode)(nil))

// children returns the entries of the folder, nil when the folder does not exist (yet).
func (n *dirNode) children() ([]*domain.FileTreeNode, bool) {
	tree := n.cache.get(n.src)
	if n.path == "" {
		return tree, true
	}
	node := vfs.FindNode(tree, n.path)
	if node == nil || !node.IsFolder() {
		return nil, false
	}
	return node.Children, true
}

// child resolves one entry name to its node.
func (n *dirNode) child(name string) (fs.InodeEmbedder, bool) {
	if n.path == "" && name == MetaDir {
		return &metaDir{src: n.src, config: n.config}, true
	}
	entries, ok := n.children()
	if !ok {
		return nil, false
	}
	for _, e := range entries {
		if e.Name != name {
			continue
		}
		if e.IsFolder() {
			return &dirNode{src: n.src, cache: n.cache, path: e.Path, config: n.config}, true
		}
		return &fileNode{src: n.src, path: e.Path, config: n.config}, true
	}
	return nil, false
}

func (n *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child, ok := n.child(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: nodeMode(child)}), 0
}

func (n *dirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, ok := n.children()
	if !ok {
		return nil, syscall.ENOENT
	}
	out := make([]fuse.DirEntry, 0, len(entries)+1)
	if n.path == "" {
		out = append(out, fuse.DirEntry{Name: MetaDir, Mode: fuse.S_IFDIR})
	}
	for _, e := range entries {
		mode := uint32(fuse.S_IFREG)
		if e.IsFolder() {
			mode = fuse.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return fs.NewListDirStream(out), 0
}

func (n *dirNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | 0555
	setTimestamps(&out.Attr, n.config.startTime())
	return 0
}

// --- fileNode: project file ---

type fileNode struct {
	fs.Inode
	src    Source
	path   string
	config *Config
}

var _ = (fs.NodeOpener)((*fileNode)(nil))
var _ = (fs.NodeReader)((*fileNode)(nil))
var _ = (fs.NodeGetattrer)((*fileNode)(nil))

func (n *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *fileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	file, ok := n.src.GetFile(n.path)
	if !ok {
		return nil, syscall.ENOENT
	}
	return fuse.ReadResultData(readAt([]byte(file.Content), dest, off)), 0
}

func (n *fileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	file, ok := n.src.GetFile(n.path)
	if !ok {
		return syscall.ENOENT
	}
	out.Mode = fuse.S_IFREG | 0444
	out.Size = uint64(len(file.Content))
	setTimestamps(&out.Attr, n.config.startTime())
	return 0
}

// --- metaDir: .sakura ---

type metaDir struct {
	fs.Inode
	src    Source
	config *Config
}

var _ = (fs.NodeLookuper)((*metaDir)(nil))
var _ = (fs.NodeReaddirer)((*metaDir)(nil))
var _ = (fs.NodeGetattrer)((*metaDir)(nil))

func (n *metaDir) entries() map[string]func() string {
	return map[string]func() string{
		"title":  n.src.ProjectTitle,
		"active": n.src.ActiveFile,
		"dependencies": func() string {
			return strings.Join(n.src.Dependencies(), "\n")
		},
	}
}

func (n *metaDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	read, ok := n.entries()[name]
	if !ok {
		return nil, syscall.ENOENT
	}
	child := &valueNode{read: read, config: n.config}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG}), 0
}

func (n *metaDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names := make([]string, 0, 3)
	for name := range n.entries() {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]fuse.DirEntry, len(names))
	for i, name := range names {
		out[i] = fuse.DirEntry{Name: name, Mode: fuse.S_IFREG}
	}
	return fs.NewListDirStream(out), 0
}

func (n *metaDir) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | 0555
	setTimestamps(&out.Attr, n.config.startTime())
	return 0
}

// --- valueNode: one metadata value, newline terminated ---

type valueNode struct {
	fs.Inode
	read   func() string
	config *Config
}

var _ = (fs.NodeOpener)((*valueNode)(nil))
var _ = (fs.NodeReader)((*valueNode)(nil))
var _ = (fs.NodeGetattrer)((*valueNode)(nil))

func (n *valueNode) content() []byte {
	v := n.read()
	if v == "" {
		return nil
	}
	return []byte(v + "\n")
}

func (n *valueNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *valueNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	return fuse.ReadResultData(readAt(n.content(), dest, off)), 0
}

func (n *valueNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFREG | 0444
	out.Size = uint64(len(n.content()))
	setTimestamps(&out.Attr, n.config.startTime())
	return 0
}

// --- helpers ---

// nodeMode returns the FUSE mode for a node (directory or regular file).
func nodeMode(node fs.InodeEmbedder) uint32 {
	switch node.(type) {
	case *dirNode, *metaDir:
		return fuse.S_IFDIR
	default:
		return fuse.S_IFREG
	}
}

// setTimestamps sets atime, mtime, and ctime on the attribute.
func setTimestamps(attr *fuse.Attr, t time.Time) {
	attr.Atime = uint64(t.Unix())
	attr.Atimensec = uint32(t.Nanosecond())
	attr.Mtime = uint64(t.Unix())
	attr.Mtimensec = uint32(t.Nanosecond())
	attr.Ctime = uint64(t.Unix())
	attr.Ctimensec = uint32(t.Nanosecond())
}

// readAt returns the portion of data that fits in dest starting at offset off.
func readAt(data, dest []byte, off int64) []byte {
	if off >= int64(len(data)) {
		return nil
	}
	n := copy(dest, data[off:])
	return dest[:n]
}

