package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) fn(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

const window = 2 * time.Second

func TestDebouncer_CollapsesBurst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	d := New(clock, rec.fn)

	h := d.Schedule("t0", window)
	clock.Advance(100 * time.Millisecond)
	require.True(t, d.Reschedule(h, "t100"))
	clock.Advance(50 * time.Millisecond)
	require.True(t, d.Reschedule(h, "t150"))
	clock.Advance(250 * time.Millisecond)
	require.True(t, d.Reschedule(h, "t400"))

	// t=2399ms: still quiet
	clock.Advance(window - time.Millisecond)
	assert.Never(t, func() bool { return len(rec.got()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.True(t, d.Pending())

	// t=2400ms
	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"t400"}, rec.got())
	assert.False(t, d.Pending())
}

func TestDebouncer_ScheduleSupersedes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	d := New(clock, rec.fn)

	old := d.Schedule("first", window)
	d.Schedule("second", window)
	assert.False(t, d.Reschedule(old, "stale"))

	clock.Advance(window)
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"second"}, rec.got())
}

func TestDebouncer_RescheduleAfterFire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	d := New(clock, rec.fn)

	h := d.Schedule("a", window)
	clock.Advance(window)
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, d.Reschedule(h, "b"))
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	d := New(clock, rec.fn)

	assert.False(t, d.Cancel())
	d.Schedule("a", window)
	assert.True(t, d.Cancel())

	clock.Advance(2 * window)
	assert.Never(t, func() bool { return len(rec.got()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestDebouncer_Flush(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	d := New(clock, rec.fn)

	assert.False(t, d.Flush())
	d.Schedule("a", window)
	assert.True(t, d.Flush())
	assert.Equal(t, []string{"a"}, rec.got())

	// the flushed call does not fire again
	clock.Advance(window)
	assert.Never(t, func() bool { return len(rec.got()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestDebouncer_RealClock(t *testing.T) {
	rec := &recorder{}
	d := New(nil, rec.fn)

	d.Schedule("a", 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, 5*time.Millisecond)
}
