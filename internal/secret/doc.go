// Package secret holds short-lived key material.
//
// A Buffer is allocated outside the Go heap on Linux (anonymous mmap,
// mlock, MADV_DONTDUMP) so the garbage collector never copies it. Other
// platforms fall back to a heap slice. In both cases Close overwrites
// the contents with zeros; callers defer Close right after acquiring a
// Buffer so the scrub runs on every exit path.
package secret
