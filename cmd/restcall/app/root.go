// Package app implements the restcall command line.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adamwoolhether/restclient/client"
)

const (
	cliName = "restcall"

	// envPrefix namespaces the environment variables read for every flag,
	// e.g. RESTCALL_BASE_URL.
	envPrefix = "RESTCALL"
)

// Options holds the flags that are not part of [client.Config].
type Options struct {
	ConfigFile string
	EnvFile    string
	Params     []string
	Headers    []string
	Data       string
	Verbose    bool
}

// NewCommand creates the restcall root command writing responses to out
// and logs to errOut.
func NewCommand(out, errOut io.Writer) *cobra.Command {
	opts := &Options{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   cliName + " [flags] METHOD [SEGMENT...]",
		Short: "Issue a REST call against a JSON API",
		Long: `restcall joins SEGMENTs onto the base URL, sends METHOD with the given
query parameters and prints the status line followed by the response body.

Every connection flag can also be set from a config file (--config), from
the environment (RESTCALL_BASE_URL, RESTCALL_TIMEOUT, ...) or from a .env
file (--env-file).`,
		Example: `  restcall --base-url http://jsonplaceholder.typicode.com PUT posts 1
  restcall --base-url http://jsonplaceholder.typicode.com GET comments -p postId=1`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, opts, args, out, errOut)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.Flags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.EnvFile, "env-file", "", "load environment variables from this file")
	flags.StringArrayVarP(&opts.Params, "param", "p", nil, "query parameter as key=value, repeatable")
	flags.StringArrayVarP(&opts.Headers, "header", "H", nil, "request header as 'Key: Value', repeatable")
	flags.StringVarP(&opts.Data, "data", "d", "", "JSON request body")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	flags.String("base-url", "", "base URL all calls are issued against")
	flags.String("user", "", "basic auth username")
	flags.String("password", "", "basic auth password")
	flags.String("token", "", "bearer token")
	flags.Duration("timeout", 0, "request timeout, 0 disables it")
	flags.String("user-agent", "", "User-Agent header")
	flags.Bool("check-status", false, "fail on redirect, 4xx and 5xx responses")
	flags.Bool("no-follow", false, "do not follow redirects")
	flags.String("request-id-header", "", "stamp a request id in this header")

	bindings := map[string]string{
		"base_url":            "base-url",
		"username":            "user",
		"password":            "password",
		"token":               "token",
		"timeout":             "timeout",
		"user_agent":          "user-agent",
		"check_status":        "check-status",
		"no_follow_redirects": "no-follow",
		"request_id_header":   "request-id-header",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("%s: binding flag %q: %v", cliName, flag, err))
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper, opts *Options, args []string, out, errOut io.Writer) error {
	log, slogger := newLoggers(errOut, opts.Verbose)

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg client.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	log.Debug().
		Str("base_url", cfg.BaseURL).
		Dur("timeout", cfg.Timeout).
		Bool("check_status", cfg.CheckStatus).
		Msg("config loaded")

	c, err := client.NewFromConfig(cfg, client.WithLogger(slogger))
	if err != nil {
		return err
	}

	callOpts, err := opts.callOptions()
	if err != nil {
		return err
	}

	method := strings.ToUpper(args[0])
	segments := make([]any, 0, len(args)-1)
	for _, seg := range args[1:] {
		segments = append(segments, seg)
	}

	resp, err := c.Call(ctx, method, segments, callOpts...)
	if err != nil {
		var se *client.StatusError
		if errors.As(err, &se) {
			fmt.Fprintln(out, se.Status)
			_ = printBody(out, []byte(se.Body))
		}
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)

	return printBody(out, body)
}

// callOptions converts the request flags into call options.
func (o *Options) callOptions() ([]client.CallOption, error) {
	var opts []client.CallOption

	if len(o.Params) > 0 {
		params := make(map[string]any, len(o.Params))
		for _, p := range o.Params {
			k, val, ok := strings.Cut(p, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("param %q: expected key=value", p)
			}
			prev, _ := params[k].([]string)
			params[k] = append(prev, val)
		}
		opts = append(opts, client.WithParams(params))
	}

	for _, h := range o.Headers {
		k, val, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("header %q: expected 'Key: Value'", h)
		}
		opts = append(opts, client.WithHeader(strings.TrimSpace(k), strings.TrimSpace(val)))
	}

	if o.Data != "" {
		if !json.Valid([]byte(o.Data)) {
			return nil, errors.New("data: invalid JSON")
		}
		opts = append(opts, client.WithBody([]byte(o.Data), "application/json"))
	}

	return opts, nil
}

// printBody writes body indented when it is JSON, verbatim otherwise.
func printBody(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		buf.Reset()
		buf.Write(body)
	}
	buf.WriteByte('\n')

	_, err := buf.WriteTo(w)
	return err
}
