package graph

import "github.com/lysandra/graphdb/internal/errs"

const component = "graph"

/*
Sentinel errors the engine's public API can return. The mutation API
(AddVertex, AddVertexWithID, AddEdge, RemoveVertex, RemoveEdge)
returns the Not-found and Duplicate ones directly, after logging a
warning and before changing any state; the query paths return them
too. Replay treats a redone Duplicate/NotFound as success.
*/
var (
	ErrVertexNotFound = errs.New(errs.NotFound, component, "vertex not found")
	ErrEdgeNotFound   = errs.New(errs.NotFound, component, "edge not found")
	ErrVertexExists   = errs.New(errs.Duplicate, component, "vertex already exists")
	ErrEdgeExists     = errs.New(errs.Duplicate, component, "edge already exists")
	ErrTooManyLabels  = errs.New(errs.OutOfRange, component, "label dictionary is full")
	ErrClosed         = errs.New(errs.InvalidState, component, "graph is closed")
)
