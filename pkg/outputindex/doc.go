/*
Package outputindex is the only writer and reader of a shard's
outputs.index.jsonl. Write always replaces the file wholesale via
tmp-then-rename — there is no append path, so a
reader never observes a partially written index: either the old
complete file or the new complete file, never a mix.

PutPayload/GetPayload implement the chunk manifest: a
payload at or under the configured threshold is stored as one CAS
object; anything larger is split into fixed-size chunks referenced by a
manifest object, transparently reassembled on read.
*/
package outputindex
