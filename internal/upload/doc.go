// Package upload is the gateway that registers primary and auxiliary media
// with the remote store. It enforces the client-side content-type allow-list
// before any bytes leave the machine and performs exactly one submission per
// call.
package upload
