package sensing

import (
	"context"
	"testing"

	"github.com/classtwin/classtwin/internal/adapters/mq/queue"
	"github.com/classtwin/classtwin/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func newTestSource(sink queue.Queue) *MQTTSource {
	return &MQTTSource{
		topic:  "classtwin/frames",
		sink:   sink,
		logger: logger.Get().Named("sensing"),
	}
}

func TestHandleFrame_EnqueuesDecodedSnapshot(t *testing.T) {
	ctx := context.Background()
	sink := queue.NewInMemoryQueue(queue.WithBufferSize(4))
	source := newTestSource(sink)

	source.handleFrame(ctx, []byte(`{
		"ts": 1700000000000,
		"bodies": [{"id": 1, "position": [0, 0, 0], "keypoints_2d": [[10, 20], [10, 90]]}]
	}`))

	require.Equal(t, 1, sink.Len(ctx))
	snap := <-sink.Dequeue(ctx)
	assert.Len(t, snap.Entities, 1)
}

func TestHandleFrame_DropsUndecodableFrame(t *testing.T) {
	ctx := context.Background()
	sink := queue.NewInMemoryQueue(queue.WithBufferSize(4))
	source := newTestSource(sink)

	source.handleFrame(ctx, []byte(`{broken`))
	source.handleFrame(ctx, nil)

	assert.Equal(t, 0, sink.Len(ctx))
}

func TestHandleFrame_KeepsValidBodiesOfPartialFrame(t *testing.T) {
	ctx := context.Background()
	sink := queue.NewInMemoryQueue(queue.WithBufferSize(4))
	source := newTestSource(sink)

	source.handleFrame(ctx, []byte(`{
		"bodies": [
			{"id": 1, "position": [0, 0, 0], "keypoints_2d": []},
			{"id": 2, "position": [1.0], "keypoints_2d": []}
		]
	}`))

	require.Equal(t, 1, sink.Len(ctx))
	snap := <-sink.Dequeue(ctx)
	assert.Len(t, snap.Entities, 1)
}
