// Package bridge runs one external process per invocation and exposes its
// input and output streams through a pair of per-robot Unix domain sockets,
// so an operator console can observe and steer the process while it runs.
//
// The supervisor never frames output beyond the line breaks the process
// itself emits: output is forwarded as raw chunks, input is read one line at
// a time. Everything the process prints before a console attaches is buffered
// and flushed, in order, on the first connection.
package bridge
