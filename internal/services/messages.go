package services

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/truequecito-backend/internal/domain/notification"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

//go:embed messages.yaml
var embeddedMessages []byte

// fallback texts used when the YAML catalog is missing or invalid
var fallbackMessages = map[notification.Kind]string{
	notification.KindProposalReceived:  "Propuesta de intercambio recibida",
	notification.KindStatusChanged:     "El intercambio fue {{.status}}",
	notification.KindReceiptUploaded:   "Comprobante subido, te notificaremos cuando exista una actualización.",
	notification.KindExchangeCompleted: "El intercambio {{.uniqueCode}} fue completado",
}

type yamlMessageCatalog struct {
	Catalog  string            `yaml:"catalog"`
	Version  int               `yaml:"version"`
	Messages []yamlMessageSpec `yaml:"messages"`
}

type yamlMessageSpec struct {
	Kind string `yaml:"kind"`
	Text string `yaml:"text"`
}

type messageCatalog struct {
	templates map[notification.Kind]*template.Template
}

var _ notification.MessageCatalog = (*messageCatalog)(nil)

// NewMessageCatalog loads notification texts from overridePath when set,
// otherwise from the embedded catalog. A broken catalog falls back to the
// built-in Spanish texts.
func NewMessageCatalog(log *logger.Logger, overridePath string) (notification.MessageCatalog, error) {
	data := embeddedMessages
	if p := strings.TrimSpace(overridePath); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read message catalog %q: %w", p, err)
		}
		data = raw
	}
	texts, err := parseMessageCatalog(data)
	if err != nil {
		if log != nil {
			log.Warn("notification catalog invalid; using fallback", "error", err)
		}
		texts = fallbackMessages
	}
	return compileMessageCatalog(texts)
}

func parseMessageCatalog(data []byte) (map[notification.Kind]string, error) {
	var spec yamlMessageCatalog
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	out := make(map[notification.Kind]string, len(spec.Messages))
	for _, m := range spec.Messages {
		kind := notification.Kind(strings.TrimSpace(m.Kind))
		if kind == "" || strings.TrimSpace(m.Text) == "" {
			return nil, fmt.Errorf("message catalog entry missing kind or text")
		}
		if _, dup := out[kind]; dup {
			return nil, fmt.Errorf("duplicate message kind %q", kind)
		}
		out[kind] = m.Text
	}
	for kind := range fallbackMessages {
		if _, ok := out[kind]; !ok {
			return nil, fmt.Errorf("message catalog missing kind %q", kind)
		}
	}
	return out, nil
}

func compileMessageCatalog(texts map[notification.Kind]string) (*messageCatalog, error) {
	c := &messageCatalog{templates: make(map[notification.Kind]*template.Template, len(texts))}
	for kind, text := range texts {
		tmpl, err := template.New(string(kind)).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse message %q: %w", kind, err)
		}
		c.templates[kind] = tmpl
	}
	return c, nil
}

func (c *messageCatalog) Render(kind notification.Kind, vars map[string]string) (string, error) {
	tmpl, ok := c.templates[kind]
	if !ok {
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", err
	}
	return strings.ReplaceAll(b.String(), "<no value>", ""), nil
}
