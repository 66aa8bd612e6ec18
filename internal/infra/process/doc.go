// Package process runs capture and detector programs in their own process
// group so they can be suspended, resumed and killed together with any
// children they spawn.
package process
