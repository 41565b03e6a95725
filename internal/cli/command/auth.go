package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/prodadmin-go/internal/cli/output"
	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/pkg/token"
)

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to the backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Username (prompted when omitted)",
				EnvVars: []string{"PRODADMIN_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (prompted without echo when omitted)",
				EnvVars: []string{"PRODADMIN_PASSWORD"},
			},
		},
		Action: loginAction,
	}
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out and forget the stored credential",
		Action: logoutAction,
	}
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the current session",
		Action: statusAction,
	}
}

func loginAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	username := strings.TrimSpace(c.String("username"))
	password := c.String("password")
	in := bufio.NewReader(rt.In)
	if username == "" && !c.IsSet("username") {
		if username, err = promptLine(in, rt.Err, "Username: "); err != nil {
			return err
		}
	}
	if password == "" && !c.IsSet("password") {
		if password, err = promptSecret(rt.In, in, rt.Err, "Password: "); err != nil {
			return err
		}
	}
	if username == "" || password == "" {
		return domain.ErrInvalidInput.WithDetails("Please enter both username and password")
	}

	store, err := rt.Session(c.Context)
	if err != nil {
		return err
	}

	spin := output.NewSpinner(rt.Err, "Signing in...")
	spin.Start()
	if err := store.Login(c.Context, username, password); err != nil {
		spin.Fail("Sign-in failed")
		return signInError(err, rt.client.BaseURL())
	}
	spin.Stop()

	fmt.Fprintf(rt.Out, "Signed in as %s.\n", username)
	return nil
}

// signInError gives each failure cause of a sign-in its own message.
func signInError(err error, server string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return err
	case errors.Is(err, domain.ErrTimeout):
		return domain.ErrTimeout.WithDetails("Sign-in timed out. Please try again.").WithCause(err)
	case errors.Is(err, domain.ErrNetworkUnavailable):
		return domain.ErrNetworkUnavailable.
			WithDetails(fmt.Sprintf("Cannot reach the server at %s. Check your connection and try again.", server)).
			WithCause(err)
	case errors.Is(err, domain.ErrTransitionInProgress):
		return domain.ErrTransitionInProgress.WithDetails("A sign-in or sign-out is already in progress.")
	default:
		return err
	}
}

func logoutAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	store, err := rt.Session(c.Context)
	if err != nil {
		return err
	}

	wasSignedIn := store.Snapshot().IsAuthenticated()
	if err := store.Logout(c.Context); err != nil {
		return err
	}
	if !rt.inShell {
		store.Wait()
	}

	if wasSignedIn {
		fmt.Fprintln(rt.Out, "Signed out.")
	} else {
		fmt.Fprintln(rt.Out, "Not signed in.")
	}
	return nil
}

// sessionStatus is the rendered form of the session.
type sessionStatus struct {
	State     string    `json:"state" yaml:"state"`
	Server    string    `json:"server" yaml:"server"`
	Subject   string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Token     string    `json:"token,omitempty" yaml:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	ExpiresIn string    `json:"expires_in,omitempty" yaml:"expires_in,omitempty" table:"wide"`
}

func statusAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	store, err := rt.Session(c.Context)
	if err != nil {
		return err
	}
	return rt.Render(rt.status(store.Snapshot()))
}

func (rt *Runtime) status(s domain.Session) sessionStatus {
	st := sessionStatus{
		State:  string(s.State()),
		Server: rt.client.BaseURL(),
	}
	if !s.IsAuthenticated() {
		return st
	}

	st.Token = token.Fingerprint(s.Token)
	if claims, ok := token.Inspect(s.Token); ok {
		st.Subject = claims.Subject
	}
	if !s.ExpiresAt.IsZero() {
		st.ExpiresAt = s.ExpiresAt
		st.ExpiresIn = time.Until(s.ExpiresAt).Truncate(time.Second).String()
	}
	return st
}

// promptLine prints prompt and reads one line from in.
func promptLine(in *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a password without echo when src is a terminal.
func promptSecret(src io.Reader, in *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(w, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}
	return promptLine(in, w, prompt)
}
