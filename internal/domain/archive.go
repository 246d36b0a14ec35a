package domain

import "strings"

// ArchiveKind 是受支持的容器格式（发现阶段识别，之后不再变化）。
type ArchiveKind string

const (
	KindZip   ArchiveKind = "zip"
	KindTarGz ArchiveKind = "tar.gz"
)

// ArchiveRef 是一个已发现的输入压缩包引用（只读；发现后不可变）。
type ArchiveRef struct {
	AbsPath string
	// Name 是文件名（含扩展名），也是排序与报告的稳定 key。
	Name string
	Kind ArchiveKind
	Size int64
}

// 容器扩展名按长度降序排列：.tar.gz 必须先于 .gz 类的短后缀被剥掉。
var containerExts = []string{".tar.gz", ".tgz", ".zip"}

// Base 返回去掉容器扩展名后的文件名（日期推导只看这一段）。
func (a ArchiveRef) Base() string {
	lower := strings.ToLower(a.Name)
	for _, ext := range containerExts {
		if strings.HasSuffix(lower, ext) {
			return a.Name[:len(a.Name)-len(ext)]
		}
	}
	return a.Name
}

// KindForName 根据扩展名识别容器格式（大小写不敏感）。
// 未识别的扩展名返回 ok=false：发现阶段直接跳过，不会流入后续流程。
func KindForName(name string) (ArchiveKind, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip, true
	case strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.gz"):
		return KindTarGz, true
	default:
		return "", false
	}
}
