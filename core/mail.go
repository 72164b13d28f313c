package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates tmplCache
	tmplInit  sync.Once
	tmplConf  = struct {
		frontendBaseURL string
		appName         string
		strict          bool
	}{appName: "Frage EDU"}
)

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// ParseEmailTemplates loads the embedded email templates once.
// Messages rendered before it is called fall back to the defaults.
func ParseEmailTemplates(conf *Config, logger Logger) {
	tmplConf.frontendBaseURL = conf.FrontendBaseURL
	tmplConf.appName = conf.AppName
	tmplConf.strict = conf.Debug || conf.TestMode
	tmplInit.Do(func() {
		if err := parseTemplates(); err != nil && logger != nil {
			logger.Error(fmt.Sprintf("parsing email templates: %v", err), err)
		}
	})
}

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		AppName:         tmplConf.appName,
		FrontendBaseURL: tmplConf.frontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) renderText(entry *tmplCacheEntry) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if entry == nil || entry.text == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := entry.text.ExecuteTemplate(&buff, "base", m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(entry *tmplCacheEntry) error {
	if entry == nil || entry.html == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := entry.html.ExecuteTemplate(&buff, "base", m.getContextData()); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	var entry *tmplCacheEntry
	if m.TemplateName != "" {
		tmplInit.Do(func() { _ = parseTemplates() })
		var ok bool
		if entry, ok = templates[m.TemplateName]; !ok {
			return errors.Errorf("email template %q not found", m.TemplateName)
		}
	}
	if err := m.renderText(entry); err != nil {
		return errors.Wrap(err, "rendering text content")
	}
	return errors.Wrap(m.renderHTML(entry), "rendering html content")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func parseTemplates() error {
	templates = make(tmplCache)

	entries, err := fs.ReadDir(appfs.FS, emailTemplatesDir)
	if err != nil {
		return errors.Wrap(err, "reading templates dir")
	}

	for _, de := range entries {
		fname := de.Name()
		ext := path.Ext(fname)
		if de.IsDir() || strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = new(tmplCacheEntry)
			templates[name] = entry
		}

		fp := path.Join(emailTemplatesDir, fname)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.txt"), fp)
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			if tmplConf.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.text = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.gohtml"), fp)
			if err != nil {
				return errors.Wrapf(err, "parsing %s", fname)
			}
			if tmplConf.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.html = tmpl
		}
	}
	return nil
}
