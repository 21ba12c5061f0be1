package vfs

import (
	"slices"
	"strings"

	"github.com/aretw0/sakura/pkg/domain"
)

// BuildTree derives the folder/file tree of paths.
//
// Paths are sorted first, so the result does not depend on arrival order. Every distinct
// folder prefix yields exactly one folder node. Empty segments ("a//b", leading "/") are
// skipped.
func BuildTree(paths []string) []*domain.FileTreeNode {
	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var root []*domain.FileTreeNode
	folders := make(map[string]*domain.FileTreeNode)

	for _, p := range sorted {
		segments := splitPath(p)
		if len(segments) == 0 {
			continue
		}

		var parent *domain.FileTreeNode
		prefix := ""
		for _, seg := range segments[:len(segments)-1] {
			if prefix == "" {
				prefix = seg
			} else {
				prefix += "/" + seg
			}
			folder, ok := folders[prefix]
			if !ok {
				folder = &domain.FileTreeNode{Name: seg, Path: prefix, Type: domain.NodeTypeFolder}
				folders[prefix] = folder
				attach(&root, parent, folder)
			}
			parent = folder
		}

		leaf := &domain.FileTreeNode{Name: segments[len(segments)-1], Path: p, Type: domain.NodeTypeFile}
		attach(&root, parent, leaf)
	}
	return root
}

func attach(root *[]*domain.FileTreeNode, parent, node *domain.FileTreeNode) {
	if parent == nil {
		*root = append(*root, node)
		return
	}
	parent.Children = append(parent.Children, node)
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// FindNode returns the node with the given path, or nil.
func FindNode(tree []*domain.FileTreeNode, path string) *domain.FileTreeNode {
	for _, n := range tree {
		if n.Path == path {
			return n
		}
		if n.IsFolder() {
			if found := FindNode(n.Children, path); found != nil {
				return found
			}
		}
	}
	return nil
}

// CountNodes returns the number of files and folders in tree.
func CountNodes(tree []*domain.FileTreeNode) (files, folders int) {
	for _, n := range tree {
		if n.IsFolder() {
			folders++
			f, d := CountNodes(n.Children)
			files += f
			folders += d
			continue
		}
		files++
	}
	return files, folders
}

// AncestorFolders returns the folder paths containing path, outermost first.
// A file explorer expands these to reveal the file being written.
func AncestorFolders(path string) []string {
	segs := splitPath(path)
	if len(segs) < 2 {
		return nil
	}
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}
