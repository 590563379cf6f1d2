package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" gate/decision ": "gate_decision",
		"foo..bar":        "foo.bar",
		".leading.":       "leading",
		"multi  space":    "multi__space",
		"":                "",
	}

	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), "input %q", input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " web "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	assert.Equal(t, "|#env:stage,result:success,service:web", formatTags(global, local))
	assert.Empty(t, formatTags(nil, map[string]string{" ": "x"}))
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".sponsorlink.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	client.Count("gate.decision", 1, map[string]string{"action": "navigate"})
	client.Timing("oracle.fetch", 1500*time.Microsecond, nil)

	buf := make([]byte, 512)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))

	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "sponsorlink.gate.decision:1|c|#action:navigate,env:test", string(buf[:n]))

	n, _, err = pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "sponsorlink.oracle.fetch:1.5|ms|#env:test", string(buf[:n]))
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	assert.True(t, client.Enabled())

	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	require.NoError(t, client.Close(), "second Close is a no-op")

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	assert.NoError(t, nilClient.Close())
	nilClient.Count("ignored", 1, nil)
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	client.Gauge("noop", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "statsd dial"))
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	tags := map[string]string{"k": "v"}
	r.Count("a", 2, tags)
	tags["k"] = "mutated"
	r.Timing("b", time.Second, nil)

	require.Len(t, r.Samples(), 2)
	got := r.Named("a")
	require.Len(t, got, 1)
	assert.Equal(t, "v", got[0].Tags["k"], "tags are copied")
	assert.Equal(t, float64(2), got[0].Value)
}
