package app

import (
	"os"
	"path/filepath"
)

// WrapperDirName 是 Takeout 导出包内的惯例顶层目录名。
// 有的导出把内容包在 Takeout/ 里，有的直接平铺；合并时必须拉平这层差异。
const WrapperDirName = "Takeout"

// PickMergeRoot 决定从哪个目录开始叠加合并：
// 若 extractDir 下只有一个条目、且是名为 Takeout 的目录，则从它内部合并；
// 否则直接从 extractDir 合并。
func PickMergeRoot(extractDir string) (string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() && entries[0].Name() == WrapperDirName {
		return filepath.Join(extractDir, entries[0].Name()), nil
	}
	return extractDir, nil
}
