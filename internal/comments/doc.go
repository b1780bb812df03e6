// Package comments builds an in-memory arena over a post's flat comment
// rows.
//
// Comments are stored flat with parent pointers; the tree shape only
// exists in this index. All traversal is iterative with a visited set, so
// deep threads and corrupt parent chains are bounded instead of blowing
// the stack. The notification fanout walks Ancestors for reply cascades;
// deletion uses Subtree to tombstone a branch in one store call.
package comments
