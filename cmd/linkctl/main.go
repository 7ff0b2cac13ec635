// Command linkctl derives product links from a tenant YAML file and runs
// the smart redirect locally.
//
//	linkctl derive --config configs/tenants.yaml --tenant <uuid> --product sku-1 --param ref=mail
//	linkctl open --config configs/tenants.yaml --tenant <uuid> --product sku-1 --user-agent "iPhone" --dry-run
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"deeplink-engine/internal/config"
	"deeplink-engine/internal/deeplink"
	"deeplink-engine/internal/redirect"
	"deeplink-engine/internal/registry"
	"deeplink-engine/internal/seed"
)

const usage = `usage: linkctl <derive|open> [flags]

  derive   print the link bundle, store links, QR and campaign links as JSON
  open     run the app-then-fallback redirect for a user agent
`

var errUsage = errors.New("usage")

func main() {
	config.SetupLogging(os.Getenv("LINKCTL_LOG_LEVEL"), true)
	if err := run(os.Args[1:], os.Stdout, nil); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, pflag.ErrHelp) {
			log.Error().Err(err).Msg("linkctl")
		}
		os.Exit(2)
	}
}

// run executes one command. nav overrides the navigator used by open.
func run(args []string, out io.Writer, nav redirect.Navigator) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errUsage
	}
	cmd, args := args[0], args[1:]

	v := viper.New()
	fs := pflag.NewFlagSet("linkctl "+cmd, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.String("config", "configs/tenants.yaml", "tenant YAML file")
	fs.String("tenant", "", "tenant id (uuid)")
	fs.String("product", "", "product id")
	fs.StringArray("param", nil, "custom query parameter k=v, repeatable, order kept")
	fs.String("origin", "http://localhost:8080", "web fallback for tenants missing from the file")

	switch cmd {
	case "derive":
		fs.String("utm-source", "", "campaign source")
		fs.String("utm-medium", "", "campaign medium")
		fs.String("utm-campaign", "", "campaign name")
		fs.String("utm-content", "", "campaign content")
		fs.Int("qr-size", deeplink.DefaultQRSize, "QR image size in pixels")
		fs.String("qr-endpoint", deeplink.DefaultQREndpoint, "QR rendering endpoint")
	case "open":
		fs.String("user-agent", "", "client user agent")
		fs.Bool("dry-run", false, "print navigations instead of opening them")
	default:
		fmt.Fprint(out, usage)
		return errUsage
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	v.SetEnvPrefix("LINKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pairs, _ := fs.GetStringArray("param")
	cfg, params, err := resolve(v, pairs)
	if err != nil {
		return err
	}
	productID := v.GetString("product")

	if cmd == "derive" {
		return derive(v, out, cfg, productID, params)
	}
	// the fallback navigation prints from a timer goroutine
	out = &syncWriter{w: out}
	if nav == nil {
		nav = systemOpener(out, v.GetBool("dry-run"))
	}
	return open(v, out, nav, cfg, productID, params)
}

func resolve(v *viper.Viper, pairs []string) (deeplink.AppLinkConfig, deeplink.Params, error) {
	id, err := uuid.Parse(v.GetString("tenant"))
	if err != nil {
		return deeplink.AppLinkConfig{}, nil, fmt.Errorf("--tenant: %w", err)
	}
	rows, err := seed.LoadFile(v.GetString("config"))
	if err != nil {
		return deeplink.AppLinkConfig{}, nil, err
	}
	cfg, known := registry.New(rows).Resolve(id, v.GetString("origin"))
	if !known {
		if bad, inFile := seed.Find(rows, id); inFile {
			return deeplink.AppLinkConfig{}, nil, fmt.Errorf("tenant %s: %w", id, deeplink.ValidateConfig(bad))
		}
		log.Warn().Str("tenant", id.String()).Msg("tenant not in file, using web-only default")
	}

	var params deeplink.Params
	for _, kv := range pairs {
		k, val, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return deeplink.AppLinkConfig{}, nil, fmt.Errorf("--param %q: want key=value", kv)
		}
		params = params.Set(k, val)
	}
	return cfg, params, nil
}

type deriveOutput struct {
	Links    deeplink.ProductLinkBundle `json:"links"`
	Stores   deeplink.StoreLinks        `json:"stores"`
	QRCode   string                     `json:"qrCode"`
	Campaign string                     `json:"campaign,omitempty"`
}

func derive(v *viper.Viper, out io.Writer, cfg deeplink.AppLinkConfig, productID string, params deeplink.Params) error {
	b, err := deeplink.DeriveProductLink(cfg, productID, params)
	if err != nil {
		return err
	}
	qr, err := deeplink.DeriveQRCodeURL(cfg, productID, deeplink.QROptions{
		Endpoint: v.GetString("qr-endpoint"),
		Size:     v.GetInt("qr-size"),
	})
	if err != nil {
		return err
	}
	res := deriveOutput{Links: b, Stores: deeplink.DeriveAppStoreLinks(cfg), QRCode: qr}

	c := deeplink.Campaign{
		Source:  v.GetString("utm-source"),
		Medium:  v.GetString("utm-medium"),
		Name:    v.GetString("utm-campaign"),
		Content: v.GetString("utm-content"),
	}
	if c != (deeplink.Campaign{}) {
		if res.Campaign, err = deeplink.DeriveCampaignLink(cfg, productID, c); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func open(v *viper.Viper, out io.Writer, nav redirect.Navigator, cfg deeplink.AppLinkConfig, productID string, params deeplink.Params) error {
	b, err := deeplink.DeriveProductLink(cfg, productID, params)
	if err != nil {
		return err
	}
	platform := deeplink.DetectPlatform(v.GetString("user-agent"))
	run := redirect.NewController(nav, nil).Open(b, deeplink.DeriveAppStoreLinks(cfg), platform)
	if plan := run.Plan(); plan.AttemptsApp() {
		fmt.Fprintf(out, "falling back after %s\n", plan.Delay)
	}
	<-run.Done()

	for _, s := range run.Steps() {
		if s.Err != nil {
			fmt.Fprintf(out, "%s %s failed: %v\n", s.State, s.Target, s.Err)
		}
	}
	fmt.Fprintf(out, "%s (%s)\n", run.State(), platform.Label())
	return nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func systemOpener(out io.Writer, dryRun bool) redirect.Navigator {
	return redirect.NavigatorFunc(func(target string) error {
		fmt.Fprintf(out, "navigate %s\n", target)
		if dryRun {
			return nil
		}
		name, args := "xdg-open", []string{target}
		switch runtime.GOOS {
		case "darwin":
			name = "open"
		case "windows":
			name, args = "rundll32", []string{"url.dll,FileProtocolHandler", target}
		}
		return exec.Command(name, args...).Start()
	})
}
