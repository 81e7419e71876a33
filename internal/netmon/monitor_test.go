package netmon

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnumerator is a test double for interface enumeration
type fakeEnumerator struct {
	mu         sync.Mutex
	interfaces []NetworkInterface
	err        error
	calls      int
}

func (f *fakeEnumerator) detect() ([]NetworkInterface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]NetworkInterface, len(f.interfaces))
	copy(out, f.interfaces)
	return out, nil
}

func (f *fakeEnumerator) set(interfaces ...NetworkInterface) {
	f.mu.Lock()
	f.interfaces = interfaces
	f.mu.Unlock()
}

func (f *fakeEnumerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestMonitor(fake *fakeEnumerator) *Monitor {
	m := NewMonitor(10 * time.Millisecond)
	m.enumerate = fake.detect
	return m
}

func active(name, ip string) NetworkInterface {
	ifc := NetworkInterface{Name: name, IPAddress: ip, IsActive: true}
	classify(&ifc)
	return ifc
}

func inactive(name, ip string) NetworkInterface {
	ifc := NetworkInterface{Name: name, IPAddress: ip}
	classify(&ifc)
	return ifc
}

func TestMonitor_Snapshot_EmptyBeforeDetection(t *testing.T) {
	m := newTestMonitor(&fakeEnumerator{})
	assert.Empty(t, m.Snapshot())
}

func TestMonitor_DetectInterfaces_DoesNotStoreSnapshot(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))
	m := newTestMonitor(fake)

	detected := m.DetectInterfaces()
	require.Len(t, detected, 1)

	// Detection alone must not update the stored snapshot.
	assert.Empty(t, m.Snapshot())
}

func TestMonitor_DetectInterfaces_EnumerationErrorYieldsEmpty(t *testing.T) {
	fake := &fakeEnumerator{err: errors.New("enumeration failed")}
	m := newTestMonitor(fake)

	detected := m.DetectInterfaces()
	assert.NotNil(t, detected)
	assert.Empty(t, detected)
}

func TestMonitor_PollOnce_FiresOnNewAddress(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))
	m := newTestMonitor(fake)

	var notified [][]NetworkInterface
	m.Subscribe(func(interfaces []NetworkInterface) {
		notified = append(notified, interfaces)
	})

	prev := m.pollOnce(nil)
	require.Len(t, notified, 1)
	assert.Equal(t, []string{"192.168.1.5"}, prev)
	assert.Equal(t, m.Snapshot(), notified[0])

	// Same set again: no notification.
	prev = m.pollOnce(prev)
	assert.Len(t, notified, 1)
}

func TestMonitor_PollOnce_OrderInsensitive(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "192.168.1.9"))
	m := newTestMonitor(fake)

	notifications := 0
	m.Subscribe(func([]NetworkInterface) { notifications++ })

	prev := m.pollOnce(nil)
	require.Equal(t, 1, notifications)

	// Same addresses, reversed enumeration order: not a change.
	fake.set(active("wlan0", "192.168.1.9"), active("eth0", "192.168.1.5"))
	m.pollOnce(prev)
	assert.Equal(t, 1, notifications)
}

func TestMonitor_PollOnce_MembershipSensitive(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "192.168.1.9"))
	m := newTestMonitor(fake)

	notifications := 0
	m.Subscribe(func([]NetworkInterface) { notifications++ })

	prev := m.pollOnce(nil)
	require.Equal(t, 1, notifications)

	// Address swapped: change.
	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "10.0.0.7"))
	prev = m.pollOnce(prev)
	assert.Equal(t, 2, notifications)

	// Address added: change.
	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "10.0.0.7"), active("ppp0", "100.64.0.9"))
	prev = m.pollOnce(prev)
	assert.Equal(t, 3, notifications)

	// Address removed: change.
	fake.set(active("eth0", "192.168.1.5"))
	prev = m.pollOnce(prev)
	assert.Equal(t, 4, notifications)

	// Unchanged: no change.
	m.pollOnce(prev)
	assert.Equal(t, 4, notifications)
}

func TestMonitor_PollOnce_IgnoresIrrelevantInterfaces(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))
	m := newTestMonitor(fake)

	notifications := 0
	m.Subscribe(func([]NetworkInterface) { notifications++ })

	prev := m.pollOnce(nil)
	require.Equal(t, 1, notifications)

	// A down interface appearing does not affect the relevant set.
	fake.set(active("eth0", "192.168.1.5"), inactive("wlan0", ""))
	m.pollOnce(prev)
	assert.Equal(t, 1, notifications)
}

func TestMonitor_CallbacksRunInRegistrationOrder(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))
	m := newTestMonitor(fake)

	var order []int
	var first, second []NetworkInterface
	m.Subscribe(func(interfaces []NetworkInterface) {
		order = append(order, 1)
		first = interfaces
	})
	m.Subscribe(func(interfaces []NetworkInterface) {
		order = append(order, 2)
		second = interfaces
	})

	m.pollOnce(nil)

	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, first, second, "both callbacks receive the same snapshot")
}

func TestMonitor_CallbackMayCallBackIntoMonitor(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))
	m := newTestMonitor(fake)

	var snapshotLen int
	m.Subscribe(func([]NetworkInterface) {
		// Callbacks run outside the monitor lock.
		snapshotLen = len(m.Snapshot())
	})

	require.NotPanics(t, func() { m.pollOnce(nil) })
	assert.Equal(t, 1, snapshotLen)
}

func TestMonitor_StartIdempotent(t *testing.T) {
	fake := &fakeEnumerator{}
	m := newTestMonitor(fake)

	m.Start()
	defer m.Stop()

	m.mu.Lock()
	first := m.stopCh
	m.mu.Unlock()

	m.Start()

	m.mu.Lock()
	second := m.stopCh
	m.mu.Unlock()

	// Second Start must not spawn a second loop.
	assert.True(t, first == second)
}

func TestMonitor_StopIdempotent(t *testing.T) {
	m := newTestMonitor(&fakeEnumerator{})

	require.NotPanics(t, func() {
		m.Stop() // never started
		m.Start()
		m.Stop()
		m.Stop()
	})
}

func TestMonitor_PollLoop_DeliversChanges(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))
	m := newTestMonitor(fake)

	ch := make(chan []NetworkInterface, 4)
	m.Subscribe(func(interfaces []NetworkInterface) {
		ch <- interfaces
	})

	m.Start()
	defer m.Stop()

	select {
	case interfaces := <-ch:
		require.Len(t, interfaces, 1)
		assert.Equal(t, "192.168.1.5", interfaces[0].IPAddress)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial change")
	}

	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "192.168.1.9"))

	select {
	case interfaces := <-ch:
		assert.Len(t, interfaces, 2)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for second change")
	}
}

func TestMonitor_PollLoop_StopEndsPolling(t *testing.T) {
	fake := &fakeEnumerator{}
	m := newTestMonitor(fake)

	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	settled := fake.callCount()
	time.Sleep(50 * time.Millisecond)
	// One in-flight iteration may still complete after Stop.
	assert.LessOrEqual(t, fake.callCount(), settled+1)
}

func TestMonitor_Poke_TriggersImmediatePoll(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))

	m := NewMonitor(time.Hour) // only Poke can drive iterations
	m.enumerate = fake.detect

	ch := make(chan []NetworkInterface, 4)
	m.Subscribe(func(interfaces []NetworkInterface) {
		ch <- interfaces
	})

	m.Start()
	defer m.Stop()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial change")
	}

	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "192.168.1.9"))
	m.Poke()

	select {
	case interfaces := <-ch:
		assert.Len(t, interfaces, 2)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for poked change")
	}
}

func TestMonitor_SaveIPList_WritesRelevantAddresses(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(
		active("eth0", "192.168.1.5"),
		inactive("wlan0", ""),
	)
	m := newTestMonitor(fake)

	path := filepath.Join(t.TempDir(), "ip_bank.txt")
	require.NoError(t, m.SaveIPList(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5\n", string(data))

	// SaveIPList stores the fresh detection as the current snapshot.
	assert.Len(t, m.Snapshot(), 2)
}

func TestMonitor_SaveIPList_MultipleAddresses(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "192.168.1.9"))
	m := newTestMonitor(fake)

	path := filepath.Join(t.TempDir(), "ip_bank.txt")
	require.NoError(t, m.SaveIPList(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5\n192.168.1.9\n", string(data))
}

func TestMonitor_SaveIPList_EmptyRelevantSetSucceeds(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(inactive("eth0", "192.168.1.5"), active("wlan0", ""))
	m := newTestMonitor(fake)

	path := filepath.Join(t.TempDir(), "ip_bank.txt")
	require.NoError(t, m.SaveIPList(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data, "no placeholder content for an empty relevant set")
}

func TestMonitor_SaveIPList_EnumerationErrorSucceeds(t *testing.T) {
	fake := &fakeEnumerator{err: errors.New("enumeration failed")}
	m := newTestMonitor(fake)

	path := filepath.Join(t.TempDir(), "ip_bank.txt")
	assert.NoError(t, m.SaveIPList(path))
}

func TestMonitor_WiredThenWirelessScenario(t *testing.T) {
	// Host starts with ethernet up and wifi down; wifi later comes up with
	// its own address.
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"), inactive("wlan0", ""))
	m := newTestMonitor(fake)

	var lastNotified []NetworkInterface
	m.Subscribe(func(interfaces []NetworkInterface) {
		lastNotified = interfaces
	})

	path := filepath.Join(t.TempDir(), "ip_bank.txt")
	require.NoError(t, m.SaveIPList(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5\n", string(data))

	prev := m.pollOnce(nil)
	require.Equal(t, []string{"192.168.1.5"}, prev)

	fake.set(active("eth0", "192.168.1.5"), active("wlan0", "192.168.1.9"))
	prev = m.pollOnce(prev)

	assert.Equal(t, []string{"192.168.1.5", "192.168.1.9"}, prev)
	require.Len(t, lastNotified, 2)
	assert.Equal(t, []string{"192.168.1.5", "192.168.1.9"}, RelevantIPs(lastNotified))
}

func TestMonitor_SaveIPList_UnwritableDestinationFails(t *testing.T) {
	fake := &fakeEnumerator{}
	fake.set(active("eth0", "192.168.1.5"))
	m := newTestMonitor(fake)

	err := m.SaveIPList(filepath.Join(t.TempDir(), "missing", "ip_bank.txt"))
	assert.Error(t, err)
}
