/*
Package dsl builds artifact markup programmatically.

It is the inverse of the parser: a fluent builder that renders the artifact and action
tags a model would stream, for any grammar. Use it to write fixtures, to replay a
directory as a reply, or to hand a project back to a model.

Example usage:

	b := dsl.New("todo", "Todo App")
	b.Prose("Here is your app.")
	b.File("src/App.tsx").Content("export default function App() {}")
	b.Shell("npm install zustand")

	reply, err := b.Build()
	if err != nil {
		return err
	}
	ws.ParseChunk(reply)

Attribute values may not contain double quotes and content may not contain the action
close tag; Build reports both.
*/
package dsl
