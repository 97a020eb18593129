package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/dirgraph/internal/scanner"
)

func drain(t *testing.T, s *Stream) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var out []Event
	for {
		ev, ok := s.Next(ctx)
		if !ok {
			require.NoError(t, ctx.Err(), "stream did not close")
			return out
		}
		out = append(out, ev)
	}
}

func TestStreamOrderAndClose(t *testing.T) {
	s := NewStream()
	assert.True(t, s.Emit(Stage(StageIndexing)))
	assert.True(t, s.Emit(Progress(0.5)))
	assert.True(t, s.Close(Canceled()))

	assert.False(t, s.Emit(Progress(1)), "emit after close must be dropped")
	assert.False(t, s.Close(Done(Result{})), "second close must lose")
	assert.True(t, s.Closed())

	got := drain(t, s)
	require.Len(t, got, 3)
	assert.Equal(t, TypeStage, got[0].Type)
	assert.Equal(t, TypeProgress, got[1].Type)
	assert.Equal(t, TypeCanceled, got[2].Type)
	assert.True(t, got[2].Terminal())
}

func TestStreamNextBlocksUntilEmit(t *testing.T) {
	s := NewStream()
	got := make(chan Event, 1)
	go func() {
		ev, ok := s.Next(context.Background())
		if ok {
			got <- ev
		}
	}()

	select {
	case <-got:
		t.Fatal("Next returned before any event")
	case <-time.After(30 * time.Millisecond):
	}

	s.Emit(Error("boom"))
	select {
	case ev := <-got:
		assert.Equal(t, "boom", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake on Emit")
	}
}

func TestStreamNextHonoursContext(t *testing.T) {
	s := NewStream()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := s.Next(ctx)
	assert.False(t, ok)
	assert.False(t, s.Closed())
}

func TestStreamConcurrentProducers(t *testing.T) {
	s := NewStream()
	const producers, each = 8, 200

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				s.Emit(Progress(0))
			}
		}()
	}
	go func() {
		wg.Wait()
		s.Close(Done(Result{}))
	}()

	got := drain(t, s)
	require.Len(t, got, producers*each+1)
	assert.Equal(t, TypeDone, got[len(got)-1].Type)
}

func TestEventJSON(t *testing.T) {
	size := int64(12)
	cases := []struct {
		ev   Event
		want string
	}{
		{Stage(StageBaseline), `{"type":"stage","stage":"soft_404_baseline"}`},
		{Progress(0.25), `{"type":"progress","value":0.25}`},
		{Canceled(), `{"type":"canceled"}`},
		{Error("unknown job"), `{"type":"error","message":"unknown job"}`},
		{
			MetaEvent(Meta{Wordlists: []string{"a.txt"}, TotalCandidates: 3, Exts: []string{}}),
			`{"type":"meta","wordlists":["a.txt"],"total_candidates":3,"exts":[]}`,
		},
		{
			Found(&scanner.ProbeResult{URL: "http://t/a", Path: "/a", Status: 200, Size: &size, Issues: []string{}}),
			`{"type":"found","item":{"url":"http://t/a","path":"/a","status":200,"size":12,"issues":[]}}`,
		},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.ev)
		require.NoError(t, err)
		assert.JSONEq(t, c.want, string(b))
	}

	var back Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"meta","wordlists":["x"],"total_candidates":1,"exts":[".php"]}`), &back))
	require.NotNil(t, back.Meta)
	assert.Equal(t, []string{".php"}, back.Exts)
}
