package parser

import (
	"testing"

	"github.com/golang-chatmsg-core/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestClassifyTag 标签匹配不区分大小写，求vip 优先于 求彩虹id
func TestClassifyTag(t *testing.T) {
	assert.Equal(t, model.TagVIP, ClassifyTag("求vip啦"))
	assert.Equal(t, model.TagVIP, ClassifyTag("大佬们 求VIP"))
	assert.Equal(t, model.TagVIP, ClassifyTag("求Vip"))
	assert.Equal(t, model.TagRainbow, ClassifyTag("求彩虹ID"))
	assert.Equal(t, model.TagRainbow, ClassifyTag("求彩虹id一个"))
	assert.Equal(t, model.TagNone, ClassifyTag("今天天气不错"))
	assert.Equal(t, model.TagNone, ClassifyTag("vip到期了"))
	// 同时出现时 求vip 先匹配
	assert.Equal(t, model.TagVIP, ClassifyTag("求vip 求彩虹id"))
}

func TestParse_Basic(t *testing.T) {
	selected := map[string]bool{"织梦": true, "青蛙": true}
	got := Parse("织梦|求电力|求上传\n青蛙|大家好", selected)

	assert.Len(t, got, 2)
	assert.Equal(t, []model.TaggedMessage{
		{Body: "求电力", Tag: model.TagNone},
		{Body: "求上传", Tag: model.TagNone},
	}, got["织梦"])
	assert.Equal(t, []model.TaggedMessage{
		{Body: "大家好", Tag: model.TagNone},
	}, got["青蛙"])
}

// TestParse_MergeLines 同一站点多行按出现顺序合并
func TestParse_MergeLines(t *testing.T) {
	selected := map[string]bool{"织梦": true}
	got := Parse("织梦|求电力\r\n织梦|求vip", selected)

	assert.Len(t, got["织梦"], 2)
	assert.Equal(t, "求电力", got["织梦"][0].Body)
	assert.Equal(t, "求vip", got["织梦"][1].Body)
	assert.Equal(t, model.TagVIP, got["织梦"][1].Tag)
}

// TestParse_UnknownSite 未选中的站点整行丢弃，不影响其余行
func TestParse_UnknownSite(t *testing.T) {
	selected := map[string]bool{"青蛙": true}
	got := Parse("没有的站|消息\n青蛙|大家好", selected)

	assert.Len(t, got, 1)
	assert.Contains(t, got, "青蛙")
}

func TestParse_Malformed(t *testing.T) {
	selected := map[string]bool{"青蛙": true}

	// 缺少消息正文的行跳过
	assert.Empty(t, Parse("青蛙", selected))
	// 空白消息段被丢弃
	got := Parse("青蛙| 大家好 ||", selected)
	assert.Equal(t, []model.TaggedMessage{{Body: "大家好", Tag: model.TagNone}}, got["青蛙"])
	// 全空输入
	assert.Empty(t, Parse("", selected))
	assert.Empty(t, Parse("\n\n", selected))
}
