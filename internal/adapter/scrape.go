package adapter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// JoinURL 拼接站点基础URL与相对路径
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// RowValue 在 NexusPHP 风格的资料页中取 label 所在行的值单元格
// 形如 <td class="rowhead">等级</td><td class="rowfollow">…</td>
func RowValue(doc *goquery.Document, label string) *goquery.Selection {
	var value *goquery.Selection
	doc.Find("td.rowhead").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.TrimSpace(s.Text()), label) {
			value = s.Next()
			return false
		}
		return true
	})
	return value
}

var datetimeRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}(?::\d{2})?`)

// ExtractDatetime 提取文本中的第一个日期时间串
func ExtractDatetime(text string) string {
	return datetimeRe.FindString(text)
}

var (
	minutesAgoRe = regexp.MustCompile(`(\d+)\s*分[钟鐘]?前`)
	hoursAgoRe   = regexp.MustCompile(`(\d+)\s*小[时時]前`)
)

// RelativeMinutes 解析"N分钟前"式的相对时间前缀，越小越新
// "小于1分钟"记为0；无法解析返回 -1
func RelativeMinutes(text string) int {
	if strings.Contains(text, "小于1分钟") || strings.Contains(text, "刚刚") {
		return 0
	}
	if m := minutesAgoRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := hoursAgoRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 60
	}
	return -1
}

// AlertMessage 提取响应体中 window.alert('…') 的字符串字面量
func AlertMessage(html string) string {
	for _, re := range alertRes {
		if m := re.FindStringSubmatch(html); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var alertRes = []*regexp.Regexp{
	regexp.MustCompile(`window\.alert\('([^']*)'\)`),
	regexp.MustCompile(`window\.alert\("([^"]*)"\)`),
	regexp.MustCompile(`\balert\('([^']*)'\)`),
	regexp.MustCompile(`\balert\("([^"]*)"\)`),
}
