/*
Package events provides a non-blocking, in-memory pub/sub broker for
batch/task/shard lifecycle notifications, plus an optional durable
JSONL sink (a batch's events.jsonl).

Events are strictly non-authoritative: a subscriber can watch a run
unfold (the CLI itself only writes the events.jsonl sink and does not
subscribe), but every question about what a shard actually produced is
answered from outputs.index.jsonl, never from this stream.

	broker := events.NewBroker()
	_ = broker.SetSink(filepath.Join(batchDir, "events.jsonl"))
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		ID: shardID, Type: events.EventShardCompleted,
		Message: "shard done", Metadata: map[string]string{"task_id": taskID},
	})

Don't block in a subscriber's receive loop — the broker drops events to
a full subscriber buffer rather than stalling the publisher.
*/
package events
