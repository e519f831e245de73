// Package classify 将站点回复文本解析为结构化奖励。
// 解析永不报错：识别不出关键词时降级为 raw 奖励，回复为空时返回 nil。
package classify

import (
	"regexp"
	"strings"

	"github.com/golang-chatmsg-core/internal/model"
)

// kindEntry 奖励关键词表的一项
type kindEntry struct {
	kind     model.RewardKind
	keywords []string
	dataSize bool // 数值为流量（G/T/M），否则为点数
	grant    bool // 授予类（VIP/彩虹ID），无数值
}

// kindTable 关键词扫描顺序固定：上传、下载、魔力、工分、电力、站点货币、VIP、彩虹ID
var kindTable = []kindEntry{
	{kind: model.KindUpload, keywords: []string{"上传", "上傳"}, dataSize: true},
	{kind: model.KindDownload, keywords: []string{"下载", "下載"}, dataSize: true},
	{kind: model.KindBonus, keywords: []string{"魔力"}},
	{kind: model.KindWorkPoints, keywords: []string{"工分"}},
	{kind: model.KindPower, keywords: []string{"电力", "電力"}},
	{kind: model.KindVicomo, keywords: []string{"象草"}},
	{kind: model.KindFrog, keywords: []string{"蝌蚪"}},
	{kind: model.KindVIP, keywords: []string{"vip"}, grant: true},
	{kind: model.KindRainbowID, keywords: []string{"彩虹id"}, grant: true},
}

var (
	sizeRe     = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*([TGMK]i?[Bb]?)`)
	negativeRe = regexp.MustCompile(`扣除|扣减|减少|罚没`)
)

// Classify 解析回复文本
// 站点专属规则优先，其次按固定顺序扫描关键词，最后降级为 raw
func Classify(site, body, reply string) *model.FeedbackRecord {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil
	}

	record := &model.FeedbackRecord{Site: site, Message: body}

	// 站点专属规则
	if rewards := applySiteHints(site, reply); len(rewards) > 0 {
		record.Rewards = rewards
		return record
	}

	lower := strings.ToLower(reply)
	for _, entry := range kindTable {
		kw, ok := firstKeyword(lower, entry.keywords)
		if !ok {
			continue
		}
		record.Rewards = append(record.Rewards, buildReward(entry, kw, reply, lower))
	}

	if len(record.Rewards) == 0 {
		record.Rewards = []model.Reward{{Kind: model.KindRaw, Description: reply}}
	}
	return record
}

// firstKeyword 返回命中的关键词（在小写文本上匹配）
func firstKeyword(lower string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

func buildReward(entry kindEntry, keyword, reply, lower string) model.Reward {
	r := model.Reward{Kind: entry.kind, Description: reply}
	if entry.grant {
		return r
	}
	if entry.dataSize {
		if m := sizeRe.FindStringSubmatch(reply); m != nil {
			r.Amount = parseAmount(m[1])
			r.Unit = strings.ToUpper(strings.TrimSuffix(strings.TrimSuffix(m[2], "b"), "B"))
			r.Negative = strings.HasPrefix(m[1], "-")
		}
	} else {
		r.Unit = keyword
		if amt, neg, ok := pointAmount(reply, keyword); ok {
			r.Amount = amt
			r.Negative = neg
		}
	}
	if negativeRe.MatchString(lower) {
		r.Negative = true
	}
	return r
}

// pointAmount 提取点数类数值：优先取关键词前的数字，其次取关键词后的数字
func pointAmount(reply, keyword string) (float64, bool, bool) {
	quoted := regexp.QuoteMeta(keyword)
	before := regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*(?:个|枚|点)?\s*(?i:` + quoted + `)`)
	if m := before.FindStringSubmatch(reply); m != nil {
		return parseAmount(m[1]), strings.HasPrefix(m[1], "-"), true
	}
	after := regexp.MustCompile(`(?i:` + quoted + `)[^\d+-]{0,8}([+-]?\d+(?:\.\d+)?)`)
	if m := after.FindStringSubmatch(reply); m != nil {
		return parseAmount(m[1]), strings.HasPrefix(m[1], "-"), true
	}
	return 0, false, false
}

func parseAmount(s string) float64 {
	s = strings.TrimPrefix(s, "+")
	var v float64
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	for _, c := range intPart {
		v = v*10 + float64(c-'0')
	}
	scale := 0.1
	for _, c := range frac {
		v += float64(c-'0') * scale
		scale /= 10
	}
	if neg {
		v = -v
	}
	return v
}

// ExpectedKind 根据请求正文推断期望的奖励类型，无法推断时返回空串
func ExpectedKind(body string) model.RewardKind {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "电力") || strings.Contains(lower, "電力"):
		return model.KindPower
	case strings.Contains(lower, "魔力"):
		return model.KindBonus
	case strings.Contains(lower, "上传") || strings.Contains(lower, "上傳"):
		return model.KindUpload
	case strings.Contains(lower, "工分"):
		return model.KindWorkPoints
	case strings.Contains(lower, "求vip"):
		return model.KindVIP
	case strings.Contains(lower, "彩虹id"):
		return model.KindRainbowID
	}
	return ""
}

// KindMatches 校验反馈的奖励类型与请求类型是否一致
// 期望为空或反馈仅为 raw 时视为一致
func KindMatches(fb *model.FeedbackRecord, expected model.RewardKind) bool {
	if expected == "" || fb == nil {
		return true
	}
	parsed := false
	for _, r := range fb.Rewards {
		if r.Kind == model.KindRaw {
			continue
		}
		parsed = true
		if r.Kind == expected {
			return true
		}
	}
	return !parsed
}
