package vfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sakura/pkg/domain"
	"github.com/aretw0/sakura/pkg/vfs"
)

func TestBuildTree_NestedFolders(t *testing.T) {
	tree := vfs.BuildTree([]string{"a/d.ts", "a/b/c.ts"})

	want := []*domain.FileTreeNode{
		{Name: "a", Path: "a", Type: domain.NodeTypeFolder, Children: []*domain.FileTreeNode{
			{Name: "b", Path: "a/b", Type: domain.NodeTypeFolder, Children: []*domain.FileTreeNode{
				{Name: "c.ts", Path: "a/b/c.ts", Type: domain.NodeTypeFile},
			}},
			{Name: "d.ts", Path: "a/d.ts", Type: domain.NodeTypeFile},
		}},
	}
	assert.Equal(t, want, tree)
}

func TestBuildTree_Deterministic(t *testing.T) {
	orders := [][]string{
		{"src/App.tsx", "package.json", "src/components/Button.tsx", "index.html"},
		{"index.html", "src/components/Button.tsx", "package.json", "src/App.tsx"},
		{"src/components/Button.tsx", "src/App.tsx", "index.html", "package.json"},
	}

	first := vfs.BuildTree(orders[0])
	for _, paths := range orders[1:] {
		assert.Equal(t, first, vfs.BuildTree(paths))
	}
	assert.Equal(t, first, vfs.BuildTree(orders[0]))
}

func TestBuildTree_OneFolderPerPrefix(t *testing.T) {
	tree := vfs.BuildTree([]string{"a/x.ts", "a/y.ts", "a/b/z.ts", "/a//w.ts", "a/x.ts"})

	files, folders := vfs.CountNodes(tree)
	assert.Equal(t, 2, folders)
	assert.Equal(t, 4, files)
	require.Len(t, tree, 1)
	assert.Equal(t, "a", tree[0].Name)
}

func TestBuildTree_EmptySegmentsMakeNoFolder(t *testing.T) {
	tree := vfs.BuildTree([]string{"/x.ts", "a//b.ts"})

	require.Len(t, tree, 2)
	assert.Equal(t, &domain.FileTreeNode{Name: "x.ts", Path: "/x.ts", Type: domain.NodeTypeFile}, tree[0])
	assert.Equal(t, "a", tree[1].Name)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, &domain.FileTreeNode{Name: "b.ts", Path: "a//b.ts", Type: domain.NodeTypeFile}, tree[1].Children[0])
}

func TestBuildTree_Empty(t *testing.T) {
	assert.Nil(t, vfs.BuildTree(nil))
	assert.Nil(t, vfs.BuildTree([]string{"", "/"}))
}

func TestFindNode(t *testing.T) {
	tree := vfs.BuildTree([]string{"src/App.tsx", "src/lib/util.ts", "README.md"})

	tests := []struct {
		path     string
		wantType domain.NodeType
		found    bool
	}{
		{"README.md", domain.NodeTypeFile, true},
		{"src", domain.NodeTypeFolder, true},
		{"src/lib/util.ts", domain.NodeTypeFile, true},
		{"src/lib", domain.NodeTypeFolder, true},
		{"nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n := vfs.FindNode(tree, tt.path)
			if !tt.found {
				assert.Nil(t, n)
				return
			}
			require.NotNil(t, n)
			assert.Equal(t, tt.wantType, n.Type)
		})
	}
}

func TestAncestorFolders(t *testing.T) {
	assert.Equal(t, []string{"src", "src/components"}, vfs.AncestorFolders("src/components/Button.tsx"))
	assert.Nil(t, vfs.AncestorFolders("index.html"))
}
