package pkg

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

func serve(t *testing.T, opts ServerOptions) string {
	t.Helper()
	s, err := NewServer(opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })
	return l.Addr().String()
}

func dial(t *testing.T, addr string) *gossh.Session {
	t.Helper()
	client, err := gossh.Dial("tcp", addr, &gossh.ClientConfig{
		User:            "dan",
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	sess, err := client.NewSession()
	require.NoError(t, err)
	return sess
}

func TestServerRunsBinaryOnPty(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell")
	}
	addr := serve(t, ServerOptions{
		Binary: sh,
		Args:   []string{"-c", `echo "$TERM $CHESSREVIEW_SESSION"`},
	})
	sess := dial(t, addr)
	require.NoError(t, sess.RequestPty("xterm-256color", 24, 80, gossh.TerminalModes{}))
	out, err := sess.Output("")
	require.NoError(t, err)
	fields := strings.Fields(string(out))
	require.Len(t, fields, 2)
	assert.Equal(t, "xterm-256color", fields[0])
	assert.Contains(t, fields[1], "-", "petname session name")
}

func TestServerRejectsWithoutPty(t *testing.T) {
	addr := serve(t, ServerOptions{Binary: "true"})
	sess := dial(t, addr)
	out, err := sess.CombinedOutput("")
	var exit *gossh.ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.ExitStatus())
	assert.Contains(t, string(out), "non-interactive")
}

func TestHostSigner(t *testing.T) {
	generated, err := HostSigner("")
	require.NoError(t, err)
	assert.Equal(t, gossh.KeyAlgoED25519, generated.PublicKey().Type())

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := gossh.MarshalPrivateKey(key, "")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "host_key")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	loaded, err := HostSigner(path)
	require.NoError(t, err)
	pub, err := gossh.NewPublicKey(key.Public())
	require.NoError(t, err)
	assert.Equal(t, pub.Marshal(), loaded.PublicKey().Marshal())

	_, err = HostSigner(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestInitLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chessreview.log")
	log, err := InitLog(path, "test", "debug")
	require.NoError(t, err)
	log.Debugw("hello", "n", 1)
	require.NoError(t, log.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"component":"test"`)
	assert.Contains(t, string(b), `"msg":"hello"`)

	_, err = InitLog(path, "test", "loud")
	assert.Error(t, err)
}
