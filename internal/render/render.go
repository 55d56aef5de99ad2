// Package render writes a reconciled credential record in one of several
// output formats.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/dbcreds/internal/reconcile"
)

// Format names an output rendering.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatDotenv Format = "dotenv"
	FormatDocker Format = "docker"
	FormatDSN    Format = "dsn"
)

const (
	defaultDSNAddr = "127.0.0.1:3306"
	nullValue      = "null"
)

// ErrUnknownFormat is returned for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported output formats.
func Formats() []string {
	return []string{
		string(FormatText),
		string(FormatJSON),
		string(FormatYAML),
		string(FormatDotenv),
		string(FormatDocker),
		string(FormatDSN),
	}
}

// containerVars maps record fields to the variables a MySQL container reads at
// bootstrap, in the order docker run flags are emitted.
var containerVars = []struct {
	name  string
	value func(reconcile.Record) *string
}{
	{"MYSQL_ROOT_PASSWORD", func(r reconcile.Record) *string { return r.RootPassword }},
	{"MYSQL_DATABASE", func(r reconcile.Record) *string { return r.Database }},
	{"MYSQL_USER", func(r reconcile.Record) *string { return r.User }},
	{"MYSQL_PASSWORD", func(r reconcile.Record) *string { return r.Password }},
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDSNAddr sets the host:port used by the dsn format.
func WithDSNAddr(addr string) Option {
	return func(r *Renderer) {
		r.dsnAddr = addr
	}
}

// Renderer writes records in a fixed format.
type Renderer struct {
	format  Format
	dsnAddr string
}

// New returns a Renderer for format.
func New(format Format, opts ...Option) (*Renderer, error) {
	if !slices.Contains(Formats(), string(format)) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	r := &Renderer{
		format:  format,
		dsnAddr: defaultDSNAddr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render writes rec to w.
func (r *Renderer) Render(w io.Writer, rec reconcile.Record) error {
	var (
		out string
		err error
	)
	switch r.format {
	case FormatText:
		out = text(rec)
	case FormatJSON:
		out, err = jsonLine(rec)
	case FormatYAML:
		out, err = yamlDoc(rec)
	case FormatDotenv:
		out, err = dotenv(rec)
	case FormatDocker:
		out = dockerFlags(rec)
	case FormatDSN:
		out = dsn(rec, r.dsnAddr)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, r.format)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", r.format, err)
	}

	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func text(rec reconcile.Record) string {
	fields := rec.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		value := nullValue
		if f.Value != nil {
			value = *f.Value
		}
		parts = append(parts, f.Name+": "+value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func jsonLine(rec reconcile.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func yamlDoc(rec reconcile.Record) (string, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func dotenv(rec reconcile.Record) (string, error) {
	vars := make(map[string]string, len(containerVars))
	for _, v := range containerVars {
		if value := v.value(rec); value != nil {
			vars[v.name] = *value
		}
	}
	return godotenv.Marshal(vars)
}

func dockerFlags(rec reconcile.Record) string {
	var flags []string
	for _, v := range containerVars {
		if value := v.value(rec); value != nil {
			flags = append(flags, "-e "+shellescape.Quote(v.name+"="+*value))
		}
	}
	return strings.Join(flags, " ")
}

func dsn(rec reconcile.Record, addr string) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = addr
	if rec.User != nil {
		cfg.User = *rec.User
	}
	if rec.Password != nil {
		cfg.Passwd = *rec.Password
	}
	if rec.Database != nil {
		cfg.DBName = *rec.Database
	}
	return cfg.FormatDSN()
}
