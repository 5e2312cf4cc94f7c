// Package queue implements a competing-consumers work queue whose entire
// state lives in a single SQL table.
//
// Items are small reference strings (up to 50 characters), not payloads.
// Any number of processes may push and consume concurrently: mutual
// exclusion is delegated to the store through one conditional update that
// acts as a compare-and-swap over (id, version, grabbed). There are no
// in-process locks and no state shared between calls.
//
// Delivery is at-least-once. A claim whose holder goes quiet past the
// configured timeout is released and the item becomes claimable again, so
// an item can be delivered twice but is never silently lost.
package queue
