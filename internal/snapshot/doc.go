// Package snapshot stores rendered result pages that looked wrong (empty or
// challenged) so selectors and blocking can be diagnosed offline.
package snapshot
