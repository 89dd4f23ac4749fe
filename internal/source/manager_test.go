package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/whale-trader/internal/model"
)

// streamSource 持续产出信号直到被停止，用于压停机路径
type streamSource struct {
	sig    chan *model.WhaleTransaction
	errs   chan error
	done   chan struct{}
	cancel context.CancelFunc
}

func newStreamSource() *streamSource {
	return &streamSource{
		sig:  make(chan *model.WhaleTransaction, 10),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
}

func (s *streamSource) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer func() {
			close(s.sig)
			close(s.errs)
			close(s.done)
		}()
		seq := 0
		for {
			seq++
			select {
			case <-ctx.Done():
				return
			case s.sig <- &model.WhaleTransaction{ID: fmt.Sprintf("sig_%d", seq)}:
			}
		}
	}()
	return nil
}

func (s *streamSource) Stop() error {
	s.cancel()
	<-s.done
	return nil
}

func (s *streamSource) Subscribe() <-chan *model.WhaleTransaction { return s.sig }
func (s *streamSource) Errors() <-chan error                      { return s.errs }
func (s *streamSource) String() string                            { return "stream-source" }

func TestManagerStopClosesAggregatedChannels(t *testing.T) {
	m := NewManager()
	m.AddSource(newStreamSource())
	m.AddSource(newStreamSource())

	require.NoError(t, m.Start())
	time.Sleep(10 * time.Millisecond)

	// 无消费者的停机也不能崩，Stop返回后汇聚通道必须已关闭
	require.NoError(t, m.Stop())

	drained := 0
	for range m.Signals() {
		drained++
	}
	assert.Greater(t, drained, 0, "sources should have streamed signals before stop")

	_, ok := <-m.Errors()
	assert.False(t, ok, "error channel should be closed after stop")
}
