package domain

import "context"

// RawMessage is one assessment request as read from the source topic,
// carrying enough position info for logging and a deferred offset commit.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64

	// Commit acknowledges the message after its result is published.
	// Nil when the source does not track offsets (tests, replays).
	Commit func(ctx context.Context) error
}

// ResultMessage is one risk result ready for the sink topic. Key carries the
// request ID so results for the same request land in one partition.
type ResultMessage struct {
	Key    []byte
	Result RiskResult
}
