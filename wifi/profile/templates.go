package profile

import (
	"embed"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// TemplateName identifies one of the embedded profile templates.
type TemplateName string

const (
	TemplateOpen    TemplateName = "OPEN"
	TemplateWEP     TemplateName = "WEP"
	TemplateWPAPSK  TemplateName = "WPA-PSK"
	TemplateWPA2PSK TemplateName = "WPA2-PSK"
)

var templateNames = []TemplateName{TemplateOpen, TemplateWEP, TemplateWPAPSK, TemplateWPA2PSK}

//go:embed templates/*.xml
var templateFS embed.FS

// templateData is substituted into a template.
type templateData struct {
	Name       string
	Hex        string
	Password   string
	Encryption string
}

// templates is populated on first use and never modified afterwards.
var templates struct {
	once   sync.Once
	text   map[TemplateName]string
	parsed map[TemplateName]*template.Template
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func loadTemplates() {
	templates.text = make(map[TemplateName]string, len(templateNames))
	templates.parsed = make(map[TemplateName]*template.Template, len(templateNames))
	funcs := template.FuncMap{"xml": escapeXML}
	for _, name := range templateNames {
		b, err := templateFS.ReadFile("templates/" + string(name) + ".xml")
		if err != nil {
			panic(fmt.Sprintf("profile: missing embedded template %s: %v", name, err))
		}
		templates.text[name] = string(b)
		templates.parsed[name] = template.Must(template.New(string(name)).Funcs(funcs).Parse(string(b)))
	}
}

// Template returns the raw text of the named template. It panics on an
// unknown name.
func Template(name TemplateName) string {
	templates.once.Do(loadTemplates)
	text, ok := templates.text[name]
	if !ok {
		panic(fmt.Sprintf("profile: unknown template %q", name))
	}
	return text
}

func parsedTemplate(name TemplateName) *template.Template {
	templates.once.Do(loadTemplates)
	t, ok := templates.parsed[name]
	if !ok {
		panic(fmt.Sprintf("profile: unknown template %q", name))
	}
	return t
}
