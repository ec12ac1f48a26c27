package topology

import "fmt"

// errTraversalStale reports the "absent optional data" error class: an
// algorithm was asked to run against a topology whose traversal has not
// been rebuilt since the last mutation. The core never rebuilds silently
// mid-algorithm; callers must refresh first (see EnsureTraversal).
func errTraversalStale(op string) error {
	return fmt.Errorf("topology: %s called with a stale traversal (call UpdateTraversal first)", op)
}
