package domain

const (
	// DateSourceFilename 表示日期来自首个压缩包的文件名。
	DateSourceFilename = "filename"
	// DateSourceFallback 表示文件名不可解析，回退到当天日期。
	DateSourceFallback = "fallback"
)

// RunPlan 是执行前的确定性计划（纯函数产物，不做任何 IO/写入）。
//
// 约束：
// - Archives 保持发现阶段的字典序（合并顺序即 last-write-wins 的语义基础）
// - Date/OutputName 只由首个文件名与时钟决定（同输入 => 同输出）
type RunPlan struct {
	Archives []ArchiveRef

	// Date 形如 "2006-01-02"。
	Date       string
	DateSource string

	// OutputName 形如 "<label>-<date>.tar.xz"（不含目录）。
	OutputName string
}
