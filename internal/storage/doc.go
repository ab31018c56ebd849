// Package storage provides the durable key/value areas the session core
// reads and writes: "sync" for the settings bundle and "local" for daily
// stats and pending fire times.
//
// Values are JSON documents. Each area supports an atomic per-key
// read-modify-write (Update) so that concurrent mutations of one record
// cannot clobber each other.
package storage
