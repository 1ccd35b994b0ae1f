/*
Package database defines the key/value database interfaces masternode list
snapshots are persisted through.

Keys are composed of a Bucket path and a suffix, so that all the keys of a
bucket can be iterated over with a Cursor. Implementations live in
sub-packages; ldb is backed by goleveldb.
*/
package database
