package i18n

import (
	"embed"
	"log/slog"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	//go:embed *.toml
	f embed.FS
)

type Localizer struct {
	bundle   *i18n.Bundle
	registry map[string]*i18n.Localizer
}

// NewLocalizer 加载内嵌的 toml 消息文件，languages 为 ALLOW_LANG 中的 key
func NewLocalizer(languages ...string) Localizer {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, lang := range languages {
		path := lang + ".toml"
		if _, err := bundle.LoadMessageFileFS(f, path); err != nil {
			slog.Error("Failed to load i18n message config", slog.String("error", err.Error()), slog.String("lang", lang), slog.String("file", path))
		}
	}

	l := Localizer{
		bundle:   bundle,
		registry: make(map[string]*i18n.Localizer),
	}
	for _, lang := range languages {
		l.registry[lang] = i18n.NewLocalizer(l.bundle, lang)
	}
	return l
}

// Get 获取 id 对应的本地化文本，找不到时返回 id 本身
func (l Localizer) Get(lang string, id string) string {
	return l.localize(lang, id, nil)
}

func (l Localizer) localize(lang, id string, data map[string]any) string {
	localizer, ok := l.registry[lang]
	if !ok {
		return id
	}

	str, err := localizer.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{ID: id, Other: id, One: id},
		TemplateData:   data,
	})
	if err != nil {
		slog.Debug("failed to get localizer message", slog.String("id", id), slog.String("lang", lang), slog.String("error", err.Error()))
		return id
	}
	return str
}
