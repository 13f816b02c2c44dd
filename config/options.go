/*
Package config holds the build-time constants of the storage engine.
Every value here has a sensible default but can be overridden by the
embedding application before a graph is created or opened.
*/
package config

/*
Options bundles every build-time constant the storage engine uses to
size its on-disk records. Options are fixed for the lifetime of a
graph directory: changing them after a graph has been created requires
a fresh export/import, which is outside the scope of this engine.
*/
type Options struct {
	// LabelLen is the maximum number of bytes of a vertex or edge label.
	LabelLen int

	// PropKeyLen / PropValLen bound property key and value byte strings.
	PropKeyLen int
	PropValLen int

	// GraphNameLen bounds the graph name stored in the master file header.
	GraphNameLen int

	// GraphTypeLen bounds the graph type string stored in the header.
	GraphTypeLen int

	// EdgeBlockSlots is the number of edge payloads packed per edge block.
	EdgeBlockSlots int

	// PropBlockSlots is the number of property payloads packed per
	// property block.
	PropBlockSlots int

	// MaxVertexLabels / MaxEdgeLabels size the two label dictionaries in
	// the master file. Both dictionaries are append-only.
	MaxVertexLabels int
	MaxEdgeLabels   int

	// InitialFileSize is the size in bytes a freshly created file is
	// zero-extended to.
	InitialFileSize int64

	// GrowthFactor is the multiplier applied to the bytes a write would
	// overflow by when a file needs to grow. A generous factor makes
	// growth (unmap/truncate/remap) rare.
	GrowthFactor int64
}

/*
Default returns the engine's default configuration, matching the sizes
documented for this storage format.
*/
func Default() Options {
	return Options{
		LabelLen:        20,
		PropKeyLen:      20,
		PropValLen:      20,
		GraphNameLen:    20,
		GraphTypeLen:    15,
		EdgeBlockSlots:  3,
		PropBlockSlots:  3,
		MaxVertexLabels: 128,
		MaxEdgeLabels:   128,
		InitialFileSize: 1024,
		GrowthFactor:    10,
	}
}

/*
PropertySize returns the on-disk size in bytes of a single (key, value)
property pair under these options.
*/
func (o Options) PropertySize() int {
	return o.PropKeyLen + o.PropValLen
}
