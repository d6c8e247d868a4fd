// Package textutil sanitizes user-supplied names so they are safe to use as
// filenames and lock-file tokens.
package textutil
