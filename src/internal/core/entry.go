// FILE: scribelog/src/internal/core/entry.go
package core

import "fmt"

// Represents a single Scribe log record: a category and an opaque payload
type LogEntry struct {
	Category string
	Message  []byte
}

// Ordered group of entries sent and admitted atomically
type Batch []LogEntry

// Returns the total payload size of the batch in bytes
func (b Batch) Size() int {
	n := 0
	for _, e := range b {
		n += len(e.Category) + len(e.Message)
	}
	return n
}

func (e LogEntry) String() string {
	return fmt.Sprintf("LogEntry(category:%s, message:%s)", e.Category, e.Message)
}
