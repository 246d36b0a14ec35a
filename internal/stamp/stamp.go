package stamp

import (
	"regexp"
	"time"
)

// 两种日期写法，按优先级依次尝试：
// 1) 连续 8 位数字（嵌在更长文件名里，如 takeout-20240115T123456Z-001）
// 2) 已带连字符的 YYYY-MM-DD（原样采用，不再重排）
//
// 8 位片段要求两侧不是数字：避免把 14 位时间戳的前半段误判成日期。
var (
	compactRE = regexp.MustCompile(`(?:^|[^0-9])([0-9]{8})(?:[^0-9]|$)`)
	dashedRE  = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4}-[0-9]{2}-[0-9]{2})(?:[^0-9]|$)`)
)

// FromBase 从首个压缩包的 base 文件名推导日期（"2006-01-02"）。
// 推导是纯函数：同一个 base 永远得到同一个结果。
//
// 两种写法都不命中时返回 ok=false；回退策略（当天日期 or 直接失败）由调用方决定。
func FromBase(base string) (string, bool) {
	for _, m := range compactRE.FindAllStringSubmatch(base, -1) {
		if t, err := time.Parse("20060102", m[1]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	for _, m := range dashedRE.FindAllStringSubmatch(base, -1) {
		if _, err := time.Parse("2006-01-02", m[1]); err == nil {
			return m[1], true
		}
	}
	return "", false
}

// Today 返回 now 对应的当天日期（回退路径专用）。
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}

// OutputID 拼装输出标识：<label>-<date>。
func OutputID(label, date string) string {
	return label + "-" + date
}
