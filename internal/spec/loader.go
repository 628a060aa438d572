package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/charmbracelet/log"
	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	getter "github.com/hashicorp/go-getter"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured loader error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// AllowFileRefs permits file based external references. Always allowed when
	// the root document itself is a local file.
	AllowFileRefs bool
	Logger        *log.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithLogger(l *log.Logger) Option { return func(s *Settings) { s.Logger = l } }

// Load reads, validates, and returns an OpenAPI v3 document. Swagger 2.0 input
// is converted to v3 with openapi2conv.
//
// input may be a filesystem path, an http/https URL, or a go-getter source with
// a forced getter such as "git::https://example.com/repo.git//openapi.yaml" or
// "s3::https://bucket.s3.amazonaws.com/openapi.yaml". file:// URLs are blocked.
func Load(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		settings.Logger = log.New(io.Discard)
	}

	if forcedGetter.MatchString(input) {
		return loadWithGetter(ctx, input, settings)
	}

	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""
	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return loadBytes(ctx, raw, u, input, settings, false)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	return loadFile(ctx, abs, abs, settings)
}

var forcedGetter = regexp.MustCompile(`^[A-Za-z0-9]+::`)

// loadWithGetter downloads src with go-getter into a scratch directory and
// loads it as a local file.
func loadWithGetter(ctx context.Context, src string, settings Settings) (*openapi3.T, error) {
	dir, err := os.MkdirTemp("", "oas2validator-")
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("create scratch dir: %v", err), Location: src, Cause: err}
	}
	defer os.RemoveAll(dir)

	name := filepath.Base(strings.SplitN(src, "?", 2)[0])
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "openapi.yaml"
	}
	dst := filepath.Join(dir, name)
	settings.Logger.Debug("fetching spec", "source", src, "dest", dst)
	err = retry.Do(
		func() error {
			return getter.GetFile(dst, src, getter.WithContext(ctx))
		},
		retry.Attempts(attempts(settings)),
		retry.Delay(backoffBase(settings)),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", src, err), Location: src, Cause: err}
	}
	return loadFile(ctx, dst, src, settings)
}

func loadFile(ctx context.Context, path, location string, settings Settings) (*openapi3.T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", path, err), Location: location, Cause: err}
	}
	return loadBytes(ctx, raw, &url.URL{Path: filepath.ToSlash(path)}, location, settings, true)
}

func loadBytes(ctx context.Context, raw []byte, base *url.URL, location string, settings Settings, rootIsFile bool) (*openapi3.T, error) {
	version, err := detectSpecVersion(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}

	var doc *openapi3.T
	switch version {
	case 3:
		doc, err = newLoader(settings, rootIsFile).LoadFromDataWithPath(raw, base)
		if err != nil {
			return nil, mapValidateOrParseErr(err, location)
		}
	case 2:
		if fixed, changed, perr := mergeV2BodyParams(raw); perr == nil && changed {
			settings.Logger.Debug("merged multiple body parameters", "location", location)
			raw = fixed
		}
		doc, err = convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: location, Cause: err}
		}
		if err := newLoader(settings, rootIsFile).ResolveRefsIn(doc, base); err != nil {
			return nil, mapValidateOrParseErr(err, location)
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: location}
	}

	if err := doc.Validate(ctx); err != nil {
		if !canProceedDespiteValidation(err) {
			return nil, mapValidateOrParseErr(err, location)
		}
		settings.Logger.Warn("proceeding despite validation error", "location", location, "err", err)
	}
	return doc, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	allowFile := settings.AllowFileRefs || rootIsFile
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(filepath.FromSlash(path))
		case "http", "https":
			req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return 3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

// permanentError stops retry.Do from trying again.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return &permanentError{err}
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			switch {
			case resp.StatusCode < 300:
				body, err = io.ReadAll(resp.Body)
				return err
			case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("transient http error %d", resp.StatusCode)
			default:
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return &permanentError{fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
			}
		},
		retry.Attempts(attempts(settings)),
		retry.Delay(backoffBase(settings)),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var p *permanentError
			return !errors.As(err, &p)
		}),
		retry.OnRetry(func(n uint, err error) {
			settings.Logger.Debug("retrying fetch", "url", rawURL, "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func attempts(settings Settings) uint {
	if settings.MaxRetries <= 0 {
		return 1
	}
	return uint(settings.MaxRetries)
}

func backoffBase(settings Settings) time.Duration {
	if settings.BackoffBase <= 0 {
		return 200 * time.Millisecond
	}
	return settings.BackoffBase
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation reports validation errors a generation run can
// survive. Unresolved references are left for the resolver, which reports them
// with the referring pointer.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
