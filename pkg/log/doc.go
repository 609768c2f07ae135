/*
Package log provides structured logging for CodeBatch using zerolog.

The log package wraps zerolog to give every component a JSON- or
console-formatted logger carrying the IDs relevant to the operation in
flight: snapshot_id, batch_id, task_id, shard_id.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	shardLog := log.WithComponent("shard-runner").
		With().Str("batch_id", batchID).Str("shard_id", shardID).Logger()
	shardLog.Info().Msg("shard transitioned to running")

Context helpers (WithSnapshotID, WithBatchID, WithTaskID, WithShardID)
exist for the common single-field case; chain .With() directly when a
log line needs more than one ID.

# Output

JSON (machine-readable, selected by the CLI's --log-json flag):

	{"level":"info","component":"shard-runner","batch_id":"b1","shard_id":"4a","message":"shard done"}

Console (the CLI's human default):

	10:30:01 INF shard done component=shard-runner batch_id=b1 shard_id=4a

Never log secrets, object bytes, or full file contents — only paths,
hashes, and counts.
*/
package log
