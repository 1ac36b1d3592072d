package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/expensedash/internal/metrics"
)

type fakePeer struct {
	id       string
	username string
	fail     bool
	block    chan struct{}

	mu     sync.Mutex
	lines  []string
	closed bool
}

func (p *fakePeer) ID() string       { return p.id }
func (p *fakePeer) Username() string { return p.username }

func (p *fakePeer) WriteLines(lines ...string) error {
	if p.block != nil {
		<-p.block
	}
	if p.fail {
		return errors.New("broken pipe")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, lines...)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func TestAddRemove(t *testing.T) {
	m := metrics.New()
	r := New(m)

	a := &fakePeer{id: "a"}
	b := &fakePeer{id: "b"}
	r.Add(a)
	r.Add(b)
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Sessions))

	r.Remove(a)
	r.Remove(a)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
}

func TestBroadcastSurvivesFailingPeer(t *testing.T) {
	m := metrics.New()
	r := New(m)

	good1 := &fakePeer{id: "g1"}
	bad := &fakePeer{id: "bad", fail: true}
	good2 := &fakePeer{id: "g2"}
	for _, p := range []*fakePeer{good1, bad, good2} {
		r.Add(p)
	}

	n := r.Broadcast("EXPENSE|1|1|alice|10.00|Lunch", "SPLIT|1|1|10.00")

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"EXPENSE|1|1|alice|10.00|Lunch", "SPLIT|1|1|10.00"}, good1.received())
	assert.Equal(t, good1.received(), good2.received())
	assert.Equal(t, 3, r.Count(), "a failed write must not remove the peer")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastFailures))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BroadcastLines))
}

func TestBroadcastDoesNotWaitOnLockDuringWrites(t *testing.T) {
	r := New(metrics.New())

	slow := &fakePeer{id: "slow", block: make(chan struct{})}
	r.Add(slow)

	done := make(chan int)
	go func() { done <- r.Broadcast("RESET|1") }()

	// Registration must not be blocked by the in-flight write.
	added := make(chan struct{})
	go func() {
		r.Add(&fakePeer{id: "late"})
		close(added)
	}()

	select {
	case <-added:
	case <-time.After(2 * time.Second):
		t.Fatal("Add blocked behind a broadcast write")
	}

	close(slow.block)
	assert.Equal(t, 1, <-done)
}

func TestSendTo(t *testing.T) {
	r := New(metrics.New())

	alice1 := &fakePeer{id: "1", username: "alice"}
	alice2 := &fakePeer{id: "2", username: "alice"}
	bob := &fakePeer{id: "3", username: "bob"}
	anon := &fakePeer{id: "4"}
	for _, p := range []*fakePeer{alice1, alice2, bob, anon} {
		r.Add(p)
	}

	assert.Equal(t, 2, r.SendTo("alice", "JOIN_REQ|1|1|Trip|bob"))
	assert.Equal(t, []string{"JOIN_REQ|1|1|Trip|bob"}, alice1.received())
	assert.Equal(t, []string{"JOIN_REQ|1|1|Trip|bob"}, alice2.received())
	assert.Empty(t, bob.received())
	assert.Empty(t, anon.received())

	assert.Equal(t, 0, r.SendTo("", "X"))
	assert.Equal(t, 0, r.SendTo("carol", "X"))
}

func TestConcurrentAddRemoveBroadcast(t *testing.T) {
	r := New(metrics.New())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		p := &fakePeer{id: fmt.Sprintf("p%d", i)}
		go func() {
			defer wg.Done()
			r.Add(p)
			r.Remove(p)
		}()
		go func() {
			defer wg.Done()
			r.Broadcast("GROUP|1|Trip|Travel")
		}()
	}
	wg.Wait()

	require.Equal(t, 0, r.Count())
}

func TestCloseAll(t *testing.T) {
	r := New(metrics.New())
	a := &fakePeer{id: "a"}
	b := &fakePeer{id: "b"}
	r.Add(a)
	r.Add(b)

	r.CloseAll()

	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
