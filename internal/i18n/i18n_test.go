// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestNewPicksLanguage(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{locale: "", want: language.English},
		{locale: "en", want: language.English},
		{locale: "en_US.UTF-8", want: language.English},
		{locale: "zh-CN", want: language.SimplifiedChinese},
		{locale: "zh_CN", want: language.SimplifiedChinese},
		{locale: "not a locale!", want: language.English},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.locale).Language())
		})
	}
}

func TestTranslate(t *testing.T) {
	en := New("en")
	assert.Equal(t, "Export succeeded", en.T(ExportSuccess))
	assert.Equal(t, "AppId: sample, Env: DEV, Cluster: default", en.T(ClusterInfo, "sample", "DEV", "default"))

	zh := New("zh-CN")
	assert.Equal(t, "导出成功", zh.T(ExportSuccess))
	assert.Equal(t, "应用: sample, 环境: DEV, 集群: default", zh.T(ClusterInfo, "sample", "DEV", "default"))
}

func TestEveryKeyTranslated(t *testing.T) {
	for _, tag := range Supported() {
		for _, key := range Keys() {
			_, ok := messages[tag][key]
			assert.True(t, ok, "%s has no translation for %s", tag, key)
		}
	}
}
