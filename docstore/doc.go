// Package docstore emulates collections of JSON documents on top of a flat
// key-value [db.Store].
//
// A collection named "users" is nothing more than the keys starting with
// "users:". Each document is a JSON object stored under "users:{id}", where
// id is the document's mandatory "id" field. Lookups by id are a single key
// read; every other query scans the collection's keys, fetches each
// document and keeps the ones whose fields equal the filter's.
//
// # Consistency
//
// The backing store is only atomic per key. Operations that touch more than
// one key (filtered updates and deletes, Drop, InsertMany, upserts) are
// read-then-act sequences of independent single-key calls. Concurrent
// writers can therefore cause lost updates, phantom reads (documents
// written mid-scan may or may not be seen) and partially applied deletes.
// Nothing is retried; errors from the store are returned to the caller as
// soon as they occur, leaving earlier writes of the same call in place.
package docstore
