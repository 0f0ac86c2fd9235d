// Package resume holds the single-entry freshness cache that fronts the
// resume file hosted on GitHub. The cache keeps one immutable record (metadata
// plus the upstream ETag and a store timestamp) and replaces it wholesale on
// every update. Within the freshness window reads never touch the network;
// past it the cache revalidates by ETag, sliding the window without a
// re-download when the upstream is unchanged, and falling back to the stale
// record when the upstream is unreachable. HTTP handlers depend on this
// package for all resume metadata and leave header shaping to the routes
// layer.
package resume
