package appconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

const (
	DefaultPrefix   = "VITE_GLOB_"
	DefaultFileName = "_app.config.js"
	DefaultOutDir   = "dist"
	shortNameVar    = "VITE_GLOB_APP_SHORT_NAME"
)

var whitespace = regexp.MustCompile(`\s`)

// FilterEnv keeps the variables of environ (KEY=VALUE pairs) whose name starts with prefix.
func FilterEnv(environ []string, prefix string) map[string]string {
	env := make(map[string]string)
	for _, kv := range environ {
		name, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(name, prefix) {
			continue
		}
		env[name] = value
	}
	return env
}

// ConfigName returns the window property the configuration is published under.
func ConfigName(env map[string]string) string {
	shortName := env[shortNameVar]
	if shortName == "" {
		shortName = "__APP"
	}
	name := strings.ToUpper(fmt.Sprintf("__PRODUCTION__%s__CONF__", shortName))
	return whitespace.ReplaceAllString(name, "")
}

// Render produces the script assigning env to window[name] and freezing it.
func Render(name string, env map[string]string) (string, error) {
	js, er := json.Marshal(env)
	if er != nil {
		return "", er
	}
	windowConf := "window." + name
	return fmt.Sprintf(`%s=%s;Object.freeze(%s);Object.defineProperty(window,"%s",{configurable:false,writable:false});`,
		windowConf, js, windowConf, name), nil
}

type Options struct {
	Environ  []string
	Prefix   string
	OutDir   string
	FileName string
	AppName  string
	Out      io.Writer
}

// Generate writes the runtime configuration file and returns its path.
func Generate(opts Options) (string, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.OutDir == "" {
		opts.OutDir = DefaultOutDir
	}
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	path, er := generate(opts)
	if er != nil {
		_, _ = fmt.Fprintln(opts.Out, color.RedString("configuration file failed to package:\n%v", er))
		return "", er
	}

	_, _ = fmt.Fprintf(opts.Out, "%s - configuration file is build successfully:\n", color.CyanString("[%s]", opts.AppName))
	_, _ = fmt.Fprintf(opts.Out, "%s\n\n", color.HiBlackString(opts.OutDir+"/")+color.GreenString(opts.FileName))
	return path, nil
}

func generate(opts Options) (string, error) {
	env := FilterEnv(opts.Environ, opts.Prefix)
	script, er := Render(ConfigName(env), env)
	if er != nil {
		return "", er
	}

	if er := os.MkdirAll(opts.OutDir, 0755); er != nil {
		return "", fmt.Errorf("failed to create output directory: %w", er)
	}
	path := filepath.Join(opts.OutDir, opts.FileName)
	if er := os.WriteFile(path, []byte(script), 0644); er != nil {
		return "", fmt.Errorf("failed to write configuration file: %w", er)
	}
	return path, nil
}
