// Package media defines the closed vocabulary shared by every clipcraft
// component: asset kinds and handles, edit operation kinds and their
// parameter snapshots, remote job states, and the artifact reference
// normalization rule used for downloads.
package media
