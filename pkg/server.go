package pkg

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

const ServerIdleTimeout = 5 * time.Minute

// ServerOptions describe what each SSH session runs.
type ServerOptions struct {
	Addr    string
	HostKey string   // PEM private key; empty generates a throwaway key
	Binary  string   // the analyzer
	Args    []string // passed to every session
	Env     []string
}

// Server hands every interactive SSH session its own analyzer process on a
// pseudo-terminal.
type Server struct {
	*ssh.Server
	opts ServerOptions
	log  *zap.SugaredLogger
}

// HostSigner loads the host key at path, or generates an ed25519 key when
// path is empty.
func HostSigner(path string) (ssh.Signer, error) {
	if path == "" {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate host key: %w", err)
		}
		return gossh.NewSignerFromKey(key)
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host key: %w", err)
	}
	signer, err := gossh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse host key %s: %w", path, err)
	}
	return signer, nil
}

func NewServer(opts ServerOptions, log *zap.SugaredLogger) (*Server, error) {
	signer, err := HostSigner(opts.HostKey)
	if err != nil {
		return nil, err
	}
	s := &Server{opts: opts, log: log}
	s.Server = &ssh.Server{
		Addr:        opts.Addr,
		IdleTimeout: ServerIdleTimeout,
		Handler:     s.handle,
		PtyCallback: func(ssh.Context, ssh.Pty) bool { return true },
	}
	s.AddHostKey(signer)
	return s, nil
}

func (s *Server) handle(sess ssh.Session) {
	id, name := uuid.NewString(), petname.Generate(2, "-")
	log := s.log.With("session", id, "name", name, "user", sess.User(), "remote", sess.RemoteAddr().String())

	ptyReq, winCh, isPty := sess.Pty()
	if !isPty {
		io.WriteString(sess, "non-interactive terminals are not supported\n")
		sess.Exit(1)
		return
	}

	cmdCtx, cancelCmd := context.WithCancel(sess.Context())
	defer cancelCmd()

	cmd := exec.CommandContext(cmdCtx, s.opts.Binary, s.opts.Args...)
	cmd.Env = append(append(os.Environ(), s.opts.Env...),
		"TERM="+ptyReq.Term,
		"CHESSREVIEW_SESSION="+name,
	)

	f, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(ptyReq.Window.Height),
		Cols: uint16(ptyReq.Window.Width),
	})
	if err != nil {
		log.Errorw("start session", "error", err)
		fmt.Fprintf(sess, "failed to initialize pseudo-terminal: %s\n", err)
		sess.Exit(1)
		return
	}
	defer f.Close()
	log.Infow("session started", "pid", cmd.Process.Pid)

	go func() {
		for win := range winCh {
			if err := pty.Setsize(f, &pty.Winsize{Rows: uint16(win.Height), Cols: uint16(win.Width)}); err != nil {
				log.Debugw("resize", "error", err)
			}
		}
	}()

	go func() {
		io.Copy(f, sess)
	}()
	io.Copy(sess, f)

	code := 0
	if err := cmd.Wait(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			code = exit.ExitCode()
		}
		log.Infow("session ended", "error", err)
	} else {
		log.Infow("session ended")
	}
	sess.Exit(code)
}

// Serve accepts sessions on l until the server is closed.
func (s *Server) Serve(l net.Listener) error {
	s.log.Infow("ssh server listening", "addr", l.Addr().String(), "binary", s.opts.Binary)
	err := s.Server.Serve(l)
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}
