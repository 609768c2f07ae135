/*
Package cas is CodeBatch's write-once, content-addressed blob store
. Objects live at objects/sha256/<aa>/<bb>/<hex>, where aa/bb
are the first two hex byte-pairs of the object's own hash — the store
never needs a separate index to find a blob, only its hash.

Put streams its input through SHA-256 while writing to a temp file,
then renames into place only if no object with that hash exists yet:
concurrent puts of identical bytes are safe and the second writer's
rename is simply redundant (tmp+rename to a content-addressed path
makes last-writer-wins benign). Get re-verifies the hash on
every read and returns CAS_CORRUPT on mismatch.
*/
package cas
