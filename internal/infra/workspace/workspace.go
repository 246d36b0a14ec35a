package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkDirName 是临时工作目录的固定名字（位于工作目录下，运行结束后整体删除）。
const WorkDirName = ".tkmerge-work"

// Workspace 管理一次运行的全部临时状态：
//
//	<dir>/.tkmerge-work/extract/<n>/   每个压缩包的解包暂存（一次只存在一个）
//	<dir>/.tkmerge-work/merged/        叠加合并的累积目录
//
// 约束：
// - 整个 Workspace 由单次运行独占；没有任何并发访问
// - Scratch 是“有界暂存”：上一个压缩包的暂存必须先 DiscardScratch 再开下一个
type Workspace struct {
	root string // <dir>/.tkmerge-work 的绝对路径
}

// New 在 dir 下创建工作目录骨架。dir 为空是编程错误，直接报错（避免误删根目录级路径）。
func New(dir string) (*Workspace, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if dir == "" || dir == "." || dir == string(filepath.Separator) {
		return nil, fmt.Errorf("workspace 根目录不合法：%q", dir)
	}
	root := filepath.Join(dir, WorkDirName)
	if err := os.MkdirAll(filepath.Join(root, "extract"), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(root, "merged"), 0o755); err != nil {
		return nil, err
	}
	return &Workspace{root: root}, nil
}

// Root 返回工作目录的绝对路径（只用于展示/排障输出）。
func (w *Workspace) Root() string { return w.root }

// MergeDir 返回叠加合并的累积目录。
func (w *Workspace) MergeDir() string { return filepath.Join(w.root, "merged") }

// Scratch 为第 i 个压缩包创建一个全新的解包暂存目录。
// 同一序号重复调用会先清掉残留（防御上一次失败留下的半成品）。
func (w *Workspace) Scratch(i int) (string, error) {
	dir := filepath.Join(w.root, "extract", fmt.Sprintf("%03d", i))
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DiscardScratch 删除一个解包暂存目录（处理完每个压缩包后立即调用，保证暂存有界）。
func (w *Workspace) DiscardScratch(dir string) error {
	// 只允许删除自己名下的路径；其他一律拒绝。
	if !strings.HasPrefix(filepath.Clean(dir), filepath.Join(w.root, "extract")+string(filepath.Separator)) {
		return fmt.Errorf("拒绝删除 workspace 之外的路径：%q", dir)
	}
	return os.RemoveAll(dir)
}

// RemoveAll 删除整个工作目录（成功路径的收尾；keep_workdir=true 时上层不调用）。
func (w *Workspace) RemoveAll() error {
	return os.RemoveAll(w.root)
}
