package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/tkmerge/internal/domain"
)

// NoInputError 表示工作目录下没有任何匹配的压缩包。
// 上层把它映射为 error_code=no_input_found。
type NoInputError struct {
	Dir string
	// Patterns 是本次搜索过的模式列表（用于给用户可操作的提示）。
	Patterns []string
}

func (e *NoInputError) Error() string {
	return fmt.Sprintf("在 %q 下未找到任何输入压缩包（搜索模式：%s）", e.Dir, strings.Join(e.Patterns, ", "))
}

func IsNoInput(err error) bool {
	var e *NoInputError
	return errors.As(err, &e)
}

// 文件名中必须出现“像日期”的片段：连续 8 位数字，或带连字符的 YYYY-MM-DD。
// 这里只做粗过滤（真正的日期校验在 stamp 包）；目的是把无关同前缀文件挡在外面。
var dateLikeRE = regexp.MustCompile(`[0-9]{8}|[0-9]{4}-[0-9]{2}-[0-9]{2}`)

// DiscoverArchives 扫描 dir 的直接子项（不递归），返回按文件名字典序排序的压缩包列表。
//
// 匹配规则（硬约束）：
// - 必须是普通文件
// - 文件名（小写后）以 prefix 开头
// - 文件名包含日期样片段
// - 扩展名是受支持的容器格式（.zip / .tgz / .tar.gz）
//
// 一个都没有时返回 *NoInputError（而不是空列表）：调用方不需要再判空。
func DiscoverArchives(dir, prefix string) ([]domain.ArchiveRef, error) {
	dir = filepath.Clean(dir)
	prefix = strings.ToLower(strings.TrimSpace(prefix))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	refs := make([]domain.ArchiveRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)

		if prefix != "" && !strings.HasPrefix(lower, prefix) {
			continue
		}
		if !dateLikeRE.MatchString(name) {
			continue
		}
		kind, ok := domain.KindForName(name)
		if !ok {
			continue
		}

		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}

		refs = append(refs, domain.ArchiveRef{
			AbsPath: filepath.Join(dir, name),
			Name:    name,
			Kind:    kind,
			Size:    info.Size(),
		})
	}

	if len(refs) == 0 {
		return nil, &NoInputError{Dir: dir, Patterns: Patterns(prefix)}
	}

	// 强制稳定输出：排序决定合并顺序与“首个文件”（日期来源）。
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Patterns 返回本次搜索等价的 glob 列表（仅用于错误提示/文档，不参与匹配）。
func Patterns(prefix string) []string {
	if prefix == "" {
		prefix = "*"
	}
	return []string{
		prefix + "*<date>*.zip",
		prefix + "*<date>*.tgz",
		prefix + "*<date>*.tar.gz",
	}
}
