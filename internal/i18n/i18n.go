// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package i18n holds every user-facing notification text in each supported
// language.
package i18n

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	LoadEnvsFailed        = "env.load_failed"
	ChooseEnvironment     = "env.choose"
	ExportSuccess         = "export.success"
	ExportFailed          = "export.failed"
	ChooseFile            = "import.choose_file"
	Importing             = "import.in_progress"
	ImportSuccess         = "import.success"
	ImportFailed          = "import.failed"
	ClusterFieldsRequired = "cluster.fields_required"
	ClusterInfo           = "cluster.info"
	NoPermission          = "permission.denied"
	RequestFailed         = "request.failed"
)

// messages maps language to key to format. Formats use positional verbs so
// translations may reorder arguments.
var messages = map[language.Tag]map[string]string{
	language.English: {
		LoadEnvsFailed:        "Failed to load environments",
		ChooseEnvironment:     "Please choose at least one environment",
		ExportSuccess:         "Export succeeded",
		ExportFailed:          "Export failed",
		ChooseFile:            "Please choose a file to upload",
		Importing:             "Importing, this may take a while",
		ImportSuccess:         "Import succeeded",
		ImportFailed:          "Import failed",
		ClusterFieldsRequired: "Please enter the app ID, environment and cluster",
		ClusterInfo:           "AppId: %[1]s, Env: %[2]s, Cluster: %[3]s",
		NoPermission:          "You do not have permission for this operation",
		RequestFailed:         "Request failed",
	},
	language.SimplifiedChinese: {
		LoadEnvsFailed:        "加载环境信息出错",
		ChooseEnvironment:     "请选择环境",
		ExportSuccess:         "导出成功",
		ExportFailed:          "导出失败",
		ChooseFile:            "请选择上传文件",
		Importing:             "正在导入，请稍候",
		ImportSuccess:         "导入成功",
		ImportFailed:          "导入失败",
		ClusterFieldsRequired: "请输入应用ID、环境和集群",
		ClusterInfo:           "应用: %[1]s, 环境: %[2]s, 集群: %[3]s",
		NoPermission:          "没有权限执行此操作",
		RequestFailed:         "请求失败",
	},
}

var (
	buildOnce sync.Once
	cat       *catalog.Builder
	matcher   language.Matcher
	supported []language.Tag
)

func build() {
	cat = catalog.NewBuilder(catalog.Fallback(language.English))
	// English first so it wins ties in the matcher.
	supported = []language.Tag{language.English, language.SimplifiedChinese}
	for _, tag := range supported {
		for key, msg := range messages[tag] {
			// Keys and tags are static; SetString only fails on malformed input.
			if err := cat.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	matcher = language.NewMatcher(supported)
}

// Translator resolves message keys for one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for the closest supported match of locale
// ("en", "zh-CN", "zh_CN", ...). Unknown locales get English.
func New(locale string) *Translator {
	buildOnce.Do(build)
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(normalize(locale)); err == nil {
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(cat)),
	}
}

// T formats the message stored under key with args.
func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Language returns the language messages are rendered in.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Supported returns the languages that have a full catalog.
func Supported() []language.Tag {
	buildOnce.Do(build)
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// Keys returns every message key.
func Keys() []string {
	keys := make([]string, 0, len(messages[language.English]))
	for key := range messages[language.English] {
		keys = append(keys, key)
	}
	return keys
}

func normalize(locale string) string {
	b := []byte(locale)
	for i, c := range b {
		if c == '_' {
			b[i] = '-'
		}
	}
	// Drop encodings such as en_US.UTF-8.
	for i, c := range b {
		if c == '.' || c == '@' {
			return string(b[:i])
		}
	}
	return string(b)
}
