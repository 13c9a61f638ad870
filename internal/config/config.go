package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Operation is the pipeline a run executes.
type Operation string

const (
	OpCreate  Operation = "create"
	OpDestroy Operation = "destroy"
)

const (
	// Domain is appended to the prefix to form every test hostname.
	Domain = "aopstest.com"
	// StackAccountPath is where test instance stacks live inside the
	// terramate repository.
	StackAccountPath = "stacks/accounts/aops_dev.487718497406"

	templateFileName = "test_instance.tf.template"
)

// Flags are the command line switches shared by both operations.
type Flags struct {
	CI      bool
	Verbose bool
	Debug   bool
}

// Config holds the resolved parameters of one run. It is built once by Load
// and passed by value.
type Config struct {
	Op       Operation
	Prefix   string
	Hostname string
	RunID    string

	AnsibleCfgBranch     string
	VaultPasswordFile    string
	TerramateCloudRepo   string
	AnsibleConfigRepo    string
	BootstrapSSHKey      string
	AnsibleControlSSHKey string
	Email                string
	OfficeVPNIP          string
	TerramateCloudPath   string
	AnsibleConfigRoot    string
	TemplateFile         string
	StackAccountPath     string
	CloudflareAPIToken   string

	CI      bool
	Verbose bool
	Debug   bool
}

// StackPath is the directory holding this host's stack inside the terramate
// checkout.
func (c Config) StackPath() string {
	return filepath.Join(c.TerramateCloudPath, c.StackRelPath())
}

// StackRelPath is StackPath relative to the terramate checkout.
func (c Config) StackRelPath() string {
	return filepath.Join(c.StackAccountPath, c.Hostname)
}

// Hostname derives the fully qualified test hostname from a prefix.
func Hostname(prefix string) string {
	return prefix + "." + Domain
}

type options struct {
	lookupEnv  func(string) (string, bool)
	home       string
	executable string
	runID      string
}

type Option func(*options)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(f func(string) (string, bool)) Option {
	return func(o *options) { o.lookupEnv = f }
}

// WithHome fixes the home directory used for default key and vault paths.
func WithHome(dir string) Option {
	return func(o *options) { o.home = dir }
}

// WithExecutable fixes the binary path the default template is resolved
// against.
func WithExecutable(path string) Option {
	return func(o *options) { o.executable = path }
}

func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

var validate = newValidator()

var hostPrefixRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hostprefix", func(fl validator.FieldLevel) bool {
		return hostPrefixRe.MatchString(fl.Field().String())
	})
	return v
}

// ValidatePrefix checks prefix against the character set op accepts.
func ValidatePrefix(op Operation, prefix string) error {
	tag, allowed := "required,alphanum", "alphanumeric"
	if op == OpDestroy {
		tag, allowed = "required,hostprefix", "alphanumeric, underscore or dash"
	}
	if err := validate.Var(prefix, tag); err != nil {
		return &Error{
			Kind:  KindValidation,
			Field: "prefix",
			Err:   fmt.Errorf("prefix %q must be non-empty and %s", prefix, allowed),
		}
	}
	return nil
}

// Load validates prefix and resolves every parameter from the environment,
// falling back to defaults. No external process is touched.
func Load(op Operation, prefix string, flags Flags, opts ...Option) (Config, error) {
	o := options{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ValidatePrefix(op, prefix); err != nil {
		return Config{}, err
	}

	if o.home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, &Error{Kind: KindConfiguration, Field: "HOME", Err: err}
		}
		o.home = home
	}
	if o.executable == "" {
		if exe, err := os.Executable(); err == nil {
			o.executable = exe
		}
	}
	if o.runID == "" {
		o.runID = uuid.NewString()[:8]
	}

	env := func(key, def string) string {
		if v, ok := o.lookupEnv(key); ok && v != "" {
			return v
		}
		return def
	}

	template := templateFileName
	if o.executable != "" {
		template = filepath.Join(filepath.Dir(o.executable), templateFileName)
	}

	cfg := Config{
		Op:       op,
		Prefix:   prefix,
		Hostname: Hostname(prefix),
		RunID:    o.runID,

		AnsibleCfgBranch:     env("ANSIBLE_CFG_BRANCH", "simple"),
		VaultPasswordFile:    env("VAULT_PASSWORD_FILE", filepath.Join(o.home, ".aops_ansible_vault_pw")),
		TerramateCloudRepo:   env("TERRAMATE_CLOUD_REPO", "git@github.com:aops-ba/terramate-cloud.git"),
		AnsibleConfigRepo:    env("ANSIBLE_CONFIG_REPO", "git@github.com:aops-ba/ansible-cfg.git"),
		BootstrapSSHKey:      env("BOOTSTRAP_SSH_KEY", filepath.Join(o.home, ".ssh", "bootstrap_key")),
		AnsibleControlSSHKey: env("ANSIBLECONTROL_SSH_KEY", filepath.Join(o.home, ".ssh", "ansible_control_key")),
		Email:                env("EMAIL", "devops@artofproblemsolving.com"),
		OfficeVPNIP:          env("OFFICE_VPN_IP", "50.203.25.222"),
		TerramateCloudPath:   env("TERRAMATE_CLOUD_PATH", filepath.Join(os.TempDir(), fmt.Sprintf("terramate-cloud-%s-%s", prefix, o.runID))),
		AnsibleConfigRoot:    env("ANSIBLE_CONFIG_ROOT", filepath.Join(os.TempDir(), fmt.Sprintf("ansible-cfg-%s-%s", prefix, o.runID))),
		TemplateFile:         env("TERRAFORM_TEMPLATE_FILE", template),
		StackAccountPath:     StackAccountPath,
		CloudflareAPIToken:   env("CLOUDFLARE_API_TOKEN", ""),

		CI:      flags.CI || env("CI", "") != "",
		Verbose: flags.Verbose,
		Debug:   flags.Debug,
	}

	if op == OpDestroy && cfg.CloudflareAPIToken == "" {
		return Config{}, &Error{
			Kind:  KindConfiguration,
			Field: "CLOUDFLARE_API_TOKEN",
			Err:   fmt.Errorf("CLOUDFLARE_API_TOKEN is required but not set"),
		}
	}

	return cfg, nil
}
