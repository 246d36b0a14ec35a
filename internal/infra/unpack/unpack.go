package unpack

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/tkmerge/internal/domain"
)

// Extractor 把“容器格式差异”限制在 unpack 包内部；核心流程只依赖统一接口。
//
// 约束：
// - Extract 把压缩包的全部内容解到 dstDir 下（保留相对路径与 mode/mtime）
// - 任何试图逃出 dstDir 的条目（../ 或绝对路径）必须报错，不允许静默跳过
// - 解包失败是致命错误：调用方会中止整次运行
type Extractor interface {
	Kind() domain.ArchiveKind
	Extract(ctx context.Context, srcPath, dstDir string) error
}

// Registry 是 Extractor 的只读注册表（按 Kind 索引）。
// 用 map 做 O(1) 查找；格式数量极小，保持简单即可。
type Registry struct {
	byKind map[domain.ArchiveKind]Extractor
}

func NewRegistry(extractors ...Extractor) (Registry, error) {
	byKind := make(map[domain.ArchiveKind]Extractor, len(extractors))
	for _, x := range extractors {
		if x == nil {
			return Registry{}, fmt.Errorf("extractor 不能为空")
		}
		kind := x.Kind()
		if kind == "" {
			return Registry{}, fmt.Errorf("extractor.Kind 不能为空")
		}
		if _, ok := byKind[kind]; ok {
			return Registry{}, fmt.Errorf("重复的 extractor：%q", kind)
		}
		byKind[kind] = x
	}
	return Registry{byKind: byKind}, nil
}

func (r Registry) Get(kind domain.ArchiveKind) (Extractor, bool) {
	if r.byKind == nil {
		return nil, false
	}
	x, ok := r.byKind[kind]
	return x, ok
}

// Default 返回内置全部格式的注册表（zip + tar.gz）。
func Default() (Registry, error) {
	return NewRegistry(ZipExtractor{}, TarGzExtractor{})
}

// secureJoin 把压缩包内的条目名映射到 dstDir 下，拒绝路径穿越。
func secureJoin(dstDir, name string) (string, error) {
	name = filepath.FromSlash(name)
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("压缩包条目是绝对路径：%q", name)
	}
	target := filepath.Join(dstDir, name)
	if target != filepath.Clean(dstDir) &&
		!strings.HasPrefix(target, filepath.Clean(dstDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("压缩包条目试图逃出目标目录：%q", name)
	}
	return target, nil
}
