/*
Package store owns CodeBatch's on-disk store-root layout and
nothing else — no execution logic lives here, just path resolution and
the batch/task metadata files every other component reads and writes
through it:

	<root>/store.json
	<root>/objects/sha256/<aa>/<bb>/<hex>
	<root>/snapshots/<id>/{snapshot.json,files.index.jsonl}
	<root>/batches/<id>/{batch.json,plan.json,events.jsonl,
	                     tasks/<tid>/{task.json,events.jsonl,
	                                  shards/<sid>/{state.json,outputs.index.jsonl}}}
	<root>/indexes/lmdb/{data.mdb,lock.mdb,cache_meta.json}

Open validates store.json exists; Init refuses to overwrite one. A
store root resolves from --store or, absent that flag, CODEBATCH_STORE.
*/
package store
