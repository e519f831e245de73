package classify

import (
	"strings"

	"github.com/golang-chatmsg-core/internal/model"
)

// siteHint 站点专属解析规则，优先于通用关键词扫描
type siteHint struct {
	match func(site string) bool
	apply func(reply string) []model.Reward
}

// siteHints 顺序即优先级
var siteHints = []siteHint{
	{
		// 青蛙站以"已送出"确认上传奖励，数值不出现在回复里，约定为大约10G
		match: func(site string) bool { return strings.Contains(site, "青蛙") },
		apply: func(reply string) []model.Reward {
			if strings.Contains(reply, "已送出") || strings.Contains(reply, "已发送") {
				return []model.Reward{{
					Kind:        model.KindUpload,
					Description: reply + "（大约10G上传）",
					Amount:      10,
					Unit:        "G",
				}}
			}
			return nil
		},
	},
	{
		// 象站回复中出现象草时提升为象草货币
		match: func(site string) bool { return strings.Contains(site, "象站") },
		apply: func(reply string) []model.Reward {
			if strings.Contains(reply, "象草") {
				r := model.Reward{Kind: model.KindVicomo, Description: reply, Unit: "象草"}
				if amt, neg, ok := pointAmount(reply, "象草"); ok {
					r.Amount = amt
					r.Negative = neg
				}
				return []model.Reward{r}
			}
			return nil
		},
	},
	{
		// 十三城的啤酒瓶货币
		match: func(site string) bool { return strings.Contains(site, "十三城") || strings.Contains(strings.ToLower(site), "13city") },
		apply: func(reply string) []model.Reward {
			if strings.Contains(reply, "啤酒瓶") {
				r := model.Reward{Kind: model.KindOther, Description: reply, Unit: "啤酒瓶"}
				if amt, neg, ok := pointAmount(reply, "啤酒瓶"); ok {
					r.Amount = amt
					r.Negative = neg
				}
				return []model.Reward{r}
			}
			return nil
		},
	},
	{
		// 好学站的火花货币
		match: func(site string) bool { return strings.Contains(site, "好学") },
		apply: func(reply string) []model.Reward {
			if strings.Contains(reply, "火花") {
				r := model.Reward{Kind: model.KindOther, Description: reply, Unit: "火花"}
				if amt, neg, ok := pointAmount(reply, "火花"); ok {
					r.Amount = amt
					r.Negative = neg
				}
				return []model.Reward{r}
			}
			return nil
		},
	},
}

func applySiteHints(site, reply string) []model.Reward {
	for _, h := range siteHints {
		if !h.match(site) {
			continue
		}
		if rewards := h.apply(reply); len(rewards) > 0 {
			return rewards
		}
	}
	return nil
}
