package scanner

// WorkItem represents a single unit of work for the worker pool.
type WorkItem struct {
	Path string // normalized path, joined onto the target base URL
}
