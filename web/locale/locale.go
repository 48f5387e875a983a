// Package locale translates user-facing messages. Each request gets its own
// localizer chosen from the lang cookie or the Accept-Language header.
package locale

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/pricedesk/pricedesk/logger"
)

// DefaultLanguage is used when the browser asks for nothing we ship.
var DefaultLanguage = language.MustParse("zh-TW")

var i18nBundle *i18n.Bundle

// Func translates key with optional "name==value" template parameters.
type Func func(key string, params ...string) string

// InitLocalizer loads every message file under the translation directory of
// i18nFS.
func InitLocalizer(i18nFS fs.FS) error {
	bundle := i18n.NewBundle(DefaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	if err := parseTranslationFiles(i18nFS, bundle); err != nil {
		return err
	}
	i18nBundle = bundle
	return nil
}

// Languages returns the tags of the loaded translations.
func Languages() []language.Tag {
	if i18nBundle == nil {
		return nil
	}
	return i18nBundle.LanguageTags()
}

func createTemplateData(params []string, separator ...string) map[string]any {
	sep := "=="
	if len(separator) > 0 {
		sep = separator[0]
	}

	templateData := make(map[string]any)
	for _, param := range params {
		parts := strings.SplitN(param, sep, 2)
		if len(parts) == 2 {
			templateData[parts[0]] = parts[1]
		}
	}
	return templateData
}

// I18n localizes key with localizer, falling back to the key itself so a
// missing message never blanks the page.
func I18n(localizer *i18n.Localizer, key string, params ...string) string {
	if localizer == nil {
		return key
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: createTemplateData(params),
	})
	if err != nil {
		var notFound *i18n.MessageNotFoundErr
		if !errors.As(err, &notFound) {
			logger.Errorf("Failed to localize message: %v", err)
		}
		if msg == "" {
			return key
		}
	}
	return msg
}

// NewLocalizer returns a localizer for the given language preferences.
func NewLocalizer(langs ...string) *i18n.Localizer {
	if i18nBundle == nil {
		return nil
	}
	return i18n.NewLocalizer(i18nBundle, langs...)
}

// LocalizerMiddleware stores the request's localizer and translate function
// in the gin context under "localizer" and "I18n".
func LocalizerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string
		if cookie, err := c.Request.Cookie("lang"); err == nil {
			lang = cookie.Value
		} else {
			lang = c.GetHeader("Accept-Language")
		}

		localizer := NewLocalizer(lang)
		c.Set("localizer", localizer)
		c.Set("I18n", Func(func(key string, params ...string) string {
			return I18n(localizer, key, params...)
		}))
		c.Set("lang", matchLanguage(lang).String())
		c.Next()
	}
}

func matchLanguage(lang string) language.Tag {
	// The matcher falls back to the first tag.
	supported := []language.Tag{DefaultLanguage}
	for _, t := range Languages() {
		if t != DefaultLanguage {
			supported = append(supported, t)
		}
	}
	tags, _, _ := language.ParseAcceptLanguage(lang)
	tag, _, _ := language.NewMatcher(supported).Match(tags...)
	base, _ := tag.Base()
	region, _ := tag.Region()
	if t, err := language.Compose(base, region); err == nil {
		return t
	}
	return tag
}

func parseTranslationFiles(i18nFS fs.FS, bundle *i18n.Bundle) error {
	return fs.WalkDir(i18nFS, "translation",
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			data, err := fs.ReadFile(i18nFS, path)
			if err != nil {
				return err
			}
			_, err = bundle.ParseMessageFileBytes(data, path)
			return err
		})
}
