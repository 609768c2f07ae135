/*
Package diff is documented in diff.go: it implements the canonical-key
comparison the CLI's diff command requires, independent of which query backend
(pkg/query's scan or pkg/cache's LMDB reader) produced the two record
sets being compared.
*/
package diff
