package client

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/kelseyhightower/envconfig"
)

// Config is the declarative form of a [Client], suited to environment
// variables (see [ConfigFromEnv]) and mapstructure based loaders.
type Config struct {
	BaseURL           string        `envconfig:"BASE_URL"            mapstructure:"base_url"            validate:"required,url"`
	Username          string        `envconfig:"USERNAME"            mapstructure:"username"            validate:"required_with=Password"`
	Password          string        `envconfig:"PASSWORD"            mapstructure:"password"`
	Token             string        `envconfig:"TOKEN"               mapstructure:"token"               validate:"excluded_with=Username"`
	Timeout           time.Duration `envconfig:"TIMEOUT"             mapstructure:"timeout"             validate:"gte=0"`
	UserAgent         string        `envconfig:"USER_AGENT"          mapstructure:"user_agent"`
	CheckStatus       bool          `envconfig:"CHECK_STATUS"        mapstructure:"check_status"`
	NoFollowRedirects bool          `envconfig:"NO_FOLLOW_REDIRECTS" mapstructure:"no_follow_redirects"`
	RequestIDHeader   string        `envconfig:"REQUEST_ID_HEADER"   mapstructure:"request_id_header"`
}

// ConfigFromEnv populates a Config from environment variables with the
// given prefix, e.g. prefix "API" reads API_BASE_URL and API_TIMEOUT.
func ConfigFromEnv(prefix string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("processing env: %w", err)
	}

	return cfg, nil
}

// Validate checks cfg against its declared tags.
// A failure is reported as [FieldErrors].
func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		fields := make(FieldErrors, 0, len(verrors))
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   customErrForTag(verror.Tag(), verror),
			})
		}
		return fields
	}

	return nil
}

// Options translates cfg into client options.
func (cfg Config) Options() []Option {
	var opts []Option

	switch {
	case cfg.Username != "":
		opts = append(opts, WithAuth(BasicAuth(cfg.Username, cfg.Password)))
	case cfg.Token != "":
		opts = append(opts, WithAuth(BearerToken(cfg.Token)))
	}

	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, WithUserAgent(cfg.UserAgent))
	}
	if cfg.CheckStatus {
		opts = append(opts, WithDefaults(WithStatusCheck()))
	}
	if cfg.NoFollowRedirects {
		opts = append(opts, WithNoFollowRedirects())
	}
	if cfg.RequestIDHeader != "" {
		opts = append(opts, WithRequestID(cfg.RequestIDHeader))
	}

	return opts
}

// NewFromConfig validates cfg and builds a [Client] from it. Extra
// options are applied after the ones derived from cfg.
func NewFromConfig(cfg Config, extra ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return New(cfg.BaseURL, append(cfg.Options(), extra...)...)
}

// FieldError represents a single validation error for a specific field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("client: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "This field is required"
	default:
		return verror.Translate(translator)
	}
}
