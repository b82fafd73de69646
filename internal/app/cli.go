package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/authclient/pkg/authsdk"
	"github.com/aussiebroadwan/authclient/pkg/identity"
	"github.com/aussiebroadwan/authclient/pkg/jwtx"
	"github.com/aussiebroadwan/authclient/pkg/slogx"
)

const usage = `usage: authctl <command> [flags]

commands:
  login      sign in and store the access token
  logout     end the session locally and on the server
  whoami     print the signed-in identity
  register   create an account
  call       issue an authorized request
  inspect    decode a token's claims (default: the stored token)
  devserver  run the development API
`

// errUsage marks failures that should print the command's usage.
var errUsage = errors.New("usage")

// CLI runs authctl commands.
type CLI struct {
	Config Config
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes args and returns the process exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.Stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "login":
		err = c.withApp(ctx, func(app *Application) error { return c.login(ctx, app, rest) })
	case "logout":
		err = c.withApp(ctx, func(app *Application) error { return c.logout(ctx, app) })
	case "whoami":
		err = c.withApp(ctx, func(app *Application) error { return c.whoami(ctx, app) })
	case "register":
		err = c.withApp(ctx, func(app *Application) error { return c.register(ctx, app, rest) })
	case "call":
		err = c.withApp(ctx, func(app *Application) error { return c.call(ctx, app, rest) })
	case "inspect":
		err = c.withApp(ctx, func(app *Application) error { return c.inspect(ctx, app, rest) })
	case "devserver":
		err = c.devserver(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(c.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(c.Stderr, "authctl: unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(c.Stderr, "authctl %s: %v\n", cmd, err)
		return 1
	}
}

func (c *CLI) withApp(ctx context.Context, fn func(*Application) error) error {
	app, err := New(ctx, c.Config, c.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger().Error("failed to close application", "error", err)
		}
	}()
	return fn(app)
}

func (c *CLI) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	return fs
}

// envelopeError renders a failed envelope with its field errors.
func envelopeError[T any](env authsdk.Envelope[T]) error {
	fields := env.FieldErrors()
	if len(fields) == 0 {
		return errors.New(env.ErrorMessage())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(env.ErrorMessage())
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, fields[k])
	}
	return errors.New(b.String())
}

func (c *CLI) login(ctx context.Context, app *Application, args []string) error {
	fs := c.flagSet("login")
	user := fs.String("user", "", "user name (prompted when empty)")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := newPrompter(c.Stdin, c.Stderr)

	var err error
	if *user == "" {
		if *user, err = p.line("User name: "); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = p.password("Password: "); err != nil {
			return err
		}
	}

	env := app.Session().SignIn(ctx, authsdk.LoginRequest{UserName: *user, Password: *password})
	if !env.Success {
		return envelopeError(env)
	}

	fmt.Fprintf(c.Stdout, "Logged in as %s\n", app.Session().Identity().UserName)
	return nil
}

func (c *CLI) logout(ctx context.Context, app *Application) error {
	app.Session().Logout(ctx)
	fmt.Fprintln(c.Stdout, "Logged out")
	return nil
}

func (c *CLI) whoami(ctx context.Context, app *Application) error {
	if !app.Session().IsAuthenticated(ctx) {
		return errors.New("not logged in")
	}
	return printJSON(c.Stdout, app.Session().Identity())
}

func (c *CLI) register(ctx context.Context, app *Application, args []string) error {
	fs := c.flagSet("register")
	user := fs.String("user", "", "user name (prompted when empty)")
	name := fs.String("name", "", "full name (prompted when empty)")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := newPrompter(c.Stdin, c.Stderr)
	req := authsdk.RegisterRequest{UserName: *user, FullName: *name, Password: *password}

	var err error
	if req.UserName == "" {
		if req.UserName, err = p.line("User name: "); err != nil {
			return err
		}
	}
	if req.FullName == "" {
		if req.FullName, err = p.line("Full name: "); err != nil {
			return err
		}
	}
	if req.Password == "" {
		if req.Password, err = p.password("Password: "); err != nil {
			return err
		}
		if req.ConfirmPassword, err = p.password("Confirm password: "); err != nil {
			return err
		}
	} else {
		req.ConfirmPassword = req.Password
	}

	env := app.Session().SignUp(ctx, req)
	if !env.Success {
		return envelopeError(env)
	}

	fmt.Fprintf(c.Stdout, "Registered %s\n", req.UserName)
	return nil
}

func (c *CLI) call(ctx context.Context, app *Application, args []string) error {
	fs := c.flagSet("call")
	method := fs.String("method", http.MethodGet, "HTTP method")
	body := fs.String("body", "", "JSON request body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.Stderr, "usage: authctl call [-method M] [-body JSON] <endpoint>")
		return errUsage
	}

	var payload any
	if *body != "" {
		if !json.Valid([]byte(*body)) {
			return errors.New("-body is not valid JSON")
		}
		payload = json.RawMessage(*body)
	}

	endpoint := fs.Arg(0)
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	env := authsdk.Send[json.RawMessage](ctx, app.Client(), strings.ToUpper(*method), endpoint, payload)
	if err := printJSON(c.Stdout, env); err != nil {
		return err
	}
	if !env.Success {
		return errors.New(env.ErrorMessage())
	}
	return nil
}

// inspection is what `inspect` prints.
type inspection struct {
	Identity  *identity.Identity `json:"identity"`
	Claims    *jwtx.Claims       `json:"claims"`
	ExpiresIn string             `json:"expiresIn,omitempty"`
	Expired   bool               `json:"expired"`
}

func (c *CLI) inspect(ctx context.Context, app *Application, args []string) error {
	fs := c.flagSet("inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token := fs.Arg(0)
	if token == "" {
		stored, err := app.Store().Token(ctx)
		if err != nil {
			return err
		}
		if stored == "" {
			return errors.New("no stored token; pass one as an argument")
		}
		token = stored
	}

	claims, err := jwtx.DecodeClaims(token)
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}

	id := identity.FromClaims(claims)
	out := inspection{Identity: &id, Claims: claims}
	if claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		out.Expired = remaining <= 0
		if !out.Expired {
			out.ExpiresIn = remaining.Round(time.Second).String()
		}
	}

	return printJSON(c.Stdout, out)
}

func (c *CLI) devserver(ctx context.Context, args []string) error {
	fs := c.flagSet("devserver")
	addr := fs.String("addr", c.Config.DevAddr, "listen address")
	seedUser := fs.String("seed-user", "", "create this user at startup")
	seedPassword := fs.String("seed-password", "", "password for -seed-user")
	rotate := fs.Bool("rotate", c.Config.DevRotateRefresh, "make refresh credentials single use")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *seedUser != "" && *seedPassword == "" {
		return errors.New("-seed-password is required with -seed-user")
	}

	cfg := c.Config
	cfg.DevRotateRefresh = *rotate

	level := "info"
	if cfg.LogLevel == "debug" {
		level = "debug"
	}
	logger := slogx.New(slogx.Config{
		Service: "authctl-devserver",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   level,
		Format:  cfg.LogFormat,
		Output:  c.Stderr,
	})

	return RunDevServer(ctx, cfg, DevServerOptions{
		Addr:         *addr,
		SeedUser:     *seedUser,
		SeedPassword: *seedPassword,
	}, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
