package ir

// Version constants for the IR encoding and the toolchain.
const (
	// EncodingVersion is bumped whenever the canonical kernel encoding changes.
	// It is part of the key domain, so old archived keys never collide with new ones.
	EncodingVersion = "1"

	// Version is the Brahma toolchain version reported by the CLI.
	Version = "0.1.0"
)
