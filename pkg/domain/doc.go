/*
Package domain contains the core data model shared by the artifact parser, the virtual
file system and every adapter.

It is kept pure and free of I/O, following the hexagonal layout of the rest of the module:
the parser owns Artifact values, the virtual file system owns VirtualFSState, and adapters
only ever see copies.

# Key Entities

  - File: a path, its (possibly still streaming) content and a completion flag.
  - FileSet: an insertion-ordered collection of Files keyed by path.
  - Artifact: one parsed project-generation reply (title, files, shell commands).
  - FileTreeNode: the derived folder/file hierarchy of a set of paths.
  - ParserState: the four states of the streaming parser.
  - ArtifactDiff: the changes between two published snapshots.
*/
package domain
