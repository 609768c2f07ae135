/*
Package executor defines the narrow interface between the shard
runner (pkg/shard) and external analyses. Real analyses
(Python AST extraction, tree-sitter parsing, lint rules) are out of
scope; internal/builtin ships reference implementations that satisfy
this interface to drive the substrate end to end.
*/
package executor
