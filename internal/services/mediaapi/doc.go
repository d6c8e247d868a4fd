// Package mediaapi is the HTTP client for the remote media processing
// service: multipart asset uploads, job submission, job status queries, and
// artifact downloads.
//
// The client performs exactly one request per call and never retries;
// callers classify failures through the services error markers.
package mediaapi
