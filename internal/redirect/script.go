package redirect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"deeplink-engine/internal/deeplink"
)

var scriptTmpl = texttemplate.Must(texttemplate.New("redirect").Parse(`(function () {
  var ua = (window.navigator && window.navigator.userAgent) || "";
  var plan;
  if (/{{.IOSPattern}}/i.test(ua)) {
    plan = {{.IOS}};
  } else if (/{{.AndroidPattern}}/i.test(ua)) {
    plan = {{.Android}};
  } else {
    plan = {{.Other}};
  }
  if (plan.app) {
    window.location.href = plan.app;
    setTimeout(function () {
      window.location.href = plan.fallback;
    }, plan.delay);
  } else {
    window.location.href = plan.fallback;
  }
})();
`))

type scriptPlan struct {
	App      string `json:"app,omitempty"`
	Fallback string `json:"fallback"`
	Delay    int64  `json:"delay"`
}

func encodePlan(p Plan) (string, error) {
	raw, err := json.Marshal(scriptPlan{App: p.AppLink, Fallback: p.Fallback, Delay: p.Delay.Milliseconds()})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Script renders the self-contained redirect script for a product. It
// embeds the plans PlanFor computes for iOS, Android and everything else,
// so the script follows the same selection and timing as Controller.
func Script(cfg deeplink.AppLinkConfig, productID string) (string, error) {
	b, err := deeplink.DeriveProductLink(cfg, productID, nil)
	if err != nil {
		return "", err
	}
	return scriptFor(b, deeplink.DeriveAppStoreLinks(cfg))
}

func scriptFor(b deeplink.ProductLinkBundle, stores deeplink.StoreLinks) (string, error) {
	plans := map[string]deeplink.Platform{
		"ios":     {IsIOS: true},
		"android": {IsAndroid: true},
		"other":   {},
	}
	enc := map[string]string{}
	for name, p := range plans {
		s, err := encodePlan(PlanFor(b, stores, p))
		if err != nil {
			return "", fmt.Errorf("encode %s plan: %w", name, err)
		}
		enc[name] = s
	}

	var buf bytes.Buffer
	err := scriptTmpl.Execute(&buf, map[string]string{
		"IOSPattern":     deeplink.IOSAgentPattern,
		"AndroidPattern": deeplink.AndroidAgentPattern,
		"IOS":            enc["ios"],
		"Android":        enc["android"],
		"Other":          enc["other"],
	})
	if err != nil {
		return "", fmt.Errorf("render redirect script: %w", err)
	}
	return buf.String(), nil
}

var pageTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<p>Opening {{.Title}}&hellip;</p>
<p><a href="{{.Web}}">Continue in the browser</a></p>
<noscript><meta http-equiv="refresh" content="0; url={{.Web}}"></noscript>
<script>{{.Script}}</script>
</body>
</html>
`))

// LandingPage renders an HTML page for server-rendered product links that
// runs the redirect script and offers the web link.
func LandingPage(cfg deeplink.AppLinkConfig, productID string, params deeplink.Params) ([]byte, error) {
	b, err := deeplink.DeriveProductLink(cfg, productID, params)
	if err != nil {
		return nil, err
	}
	script, err := scriptFor(b, deeplink.DeriveAppStoreLinks(cfg))
	if err != nil {
		return nil, err
	}
	title := cfg.App.Name
	if title == "" {
		title = productID
	}

	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, struct {
		Title  string
		Web    string
		Script template.JS
	}{Title: title, Web: b.Web, Script: template.JS(script)})
	if err != nil {
		return nil, fmt.Errorf("render landing page: %w", err)
	}
	return buf.Bytes(), nil
}
