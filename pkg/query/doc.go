/*
Package query is the authoritative scan path: it reads
outputs.index.jsonl directly off disk with no cache and no locks,
returning records in the canonical order (path ASC, kind ASC, line
ASC, column ASC, code ASC) that every other query surface — including
the LMDB-backed cache in pkg/cache — must agree with.
*/
package query
