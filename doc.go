/*
Package sakura turns a streamed AI reply into a live, browsable project.

Model replies interleave prose with a small tag language: an artifact tag wraps file actions
(create this file with this content) and shell actions (run this command). A Workspace owns a
streaming parser for that language and the virtual file system the parser feeds. Text can
arrive in arbitrary chunks, with tags split anywhere, or as the whole accumulated message
re-fed on every update; both paths converge to the same project.

# Usage

	ws, err := sakura.New()
	if err != nil {
		log.Fatal(err)
	}

	for chunk := range chunks {
		ws.ParseChunk(chunk)
		snap := ws.Snapshot()
		render(snap.Tree, snap.FS.ActiveFile)
	}

Subscribers registered with Subscribe receive the artifact after every call that changed it
and nil after Reset.

# Guarantees

  - Re-parsing the same text from scratch yields the same artifact as feeding it
    incrementally, split at any offsets.
  - A file recorded complete never reverts to incomplete in the file system.
  - Shell commands are recorded once, at their first-seen position.
  - The derived file tree depends only on the set of paths, never on arrival order.
*/
package sakura
