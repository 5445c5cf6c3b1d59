package subproc

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoService = `import sys, struct, json
inp = sys.stdin.buffer
while True:
    head = inp.read(4)
    if len(head) < 4:
        break
    n = struct.unpack(">I", head)[0]
    data = inp.read(n)
    sys.stdout.write(json.dumps({"n": n, "first": data[:1].decode()}) + "\n")
    sys.stdout.flush()
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "echo_service.py")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func requirePython(t *testing.T) string {
	t.Helper()
	py, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	return py
}

func TestNew_MissingScript(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.Is(err, ErrScriptNotFound))

	_, err = New(Config{Script: filepath.Join(t.TempDir(), "nope.py")})
	assert.True(t, errors.Is(err, ErrScriptNotFound))
}

func TestProcess_Exchange(t *testing.T) {
	py := requirePython(t)
	p, err := New(Config{Python: py, Script: writeScript(t, echoService)})
	require.NoError(t, err)
	defer p.Close()

	for _, payload := range []string{"abc", "x"} {
		line, err := p.Exchange([]byte(payload))
		require.NoError(t, err)
		assert.JSONEq(t, `{"n": `+strconv.Itoa(len(payload))+`, "first": "`+payload[:1]+`"}`, string(line))
	}
}

func TestProcess_IdleShutdownRestarts(t *testing.T) {
	py := requirePython(t)
	p, err := New(Config{Python: py, Script: writeScript(t, echoService), IdleTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Exchange([]byte("a"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return !p.started
	}, 2*time.Second, 10*time.Millisecond)

	_, err = p.Exchange([]byte("b"))
	assert.NoError(t, err)
}

// stubbornService answers like echoService but keeps running after stdin
// closes.
const stubbornService = `import sys, struct, time
inp = sys.stdin.buffer
while True:
    head = inp.read(4)
    if len(head) < 4:
        break
    inp.read(struct.unpack(">I", head)[0])
    sys.stdout.write("{}\n")
    sys.stdout.flush()
time.sleep(60)
`

func TestProcess_IdleShutdownDoesNotBlockRequests(t *testing.T) {
	py := requirePython(t)
	p, err := New(Config{
		Python:        py,
		Script:        writeScript(t, stubbornService),
		IdleTimeout:   20 * time.Millisecond,
		ShutdownGrace: time.Second,
	})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Exchange([]byte("a"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return !p.started
	}, 2*time.Second, 10*time.Millisecond)

	// The old process is still lingering in its grace period.
	start := time.Now()
	_, err = p.Exchange([]byte("b"))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProcess_CloseKillsStubbornService(t *testing.T) {
	py := requirePython(t)
	p, err := New(Config{
		Python:        py,
		Script:        writeScript(t, stubbornService),
		ShutdownGrace: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = p.Exchange([]byte("a"))
	require.NoError(t, err)

	start := time.Now()
	err = p.Close()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ignored shutdown")
	assert.Less(t, time.Since(start), 5*time.Second)

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	assert.False(t, started)
}

func TestProcess_BrokenServiceIsRestartable(t *testing.T) {
	py := requirePython(t)
	p, err := New(Config{Python: py, Script: writeScript(t, "import sys\nsys.stdin.buffer.read(1)\n")})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Exchange([]byte("abc"))
	assert.Error(t, err)

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	assert.False(t, started)
}

const envService = `import sys, struct, os
inp = sys.stdin.buffer
while True:
    head = inp.read(4)
    if len(head) < 4:
        break
    inp.read(struct.unpack(">I", head)[0])
    sys.stdout.write(os.environ.get("FRETWISE_TEST_VALUE", "unset") + "\n")
    sys.stdout.flush()
`

func TestProcess_Env(t *testing.T) {
	py := requirePython(t)
	p, err := New(Config{Python: py, Script: writeScript(t, envService), Env: []string{"FRETWISE_TEST_VALUE=42"}})
	require.NoError(t, err)
	defer p.Close()

	line, err := p.Exchange([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "42\n", string(line))
}
