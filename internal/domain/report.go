package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	StatusMerged = "merged"
	StatusFailed = "failed"
	// StatusSkipped 表示因前序压缩包失败导致运行中止、该包未被处理。
	StatusSkipped = "skipped"
)

const (
	ErrCodeMissingDependency = "missing_dependency"
	ErrCodeNoInputFound      = "no_input_found"
	ErrCodeExtractionFailed  = "extraction_failed"
	ErrCodePackagingFailed   = "packaging_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeConfigInvalid     = "config_invalid"
	// ErrCodeDateUnparsed 仅在 strict_date=true 时出现：首个文件名解析不出日期。
	ErrCodeDateUnparsed = "date_unparsed"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	Dir   string `json:"dir"`
	Label string `json:"label"`

	Date       string `json:"date"`
	DateSource string `json:"date_source"`

	// Output 是最终产物的绝对路径；运行失败时为空（不存在“半成品”路径）。
	Output string `json:"output"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ErrorCode/ErrorMsg 描述导致整次运行中止的致命错误；成功时均为空。
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Summary  ReportSummary   `json:"summary"`
	Archives []ArchiveResult `json:"archives"`
}

type ReportSummary struct {
	// Merged/Failed/Skipped 由 Archives 统计得出。
	Merged  int `json:"merged"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`

	// Files 是合并树中普通文件的总数（重复相对路径折叠为一）。
	Files int `json:"files"`

	BytesOut  int64  `json:"bytes_out"`
	SizeHuman string `json:"size_human"`
}

type ArchiveResult struct {
	Name string      `json:"name"`
	Kind ArchiveKind `json:"kind"`

	// Files 是该压缩包解出的普通文件数（合并前的计数，含与前序重复的路径）。
	Files int `json:"files"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) archives 稳定排序：按 name 字典序（与发现顺序一致，双保险）
// 3) summary 的计数字段由 archives 计算得出；SizeHuman 由 BytesOut 格式化
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Archives, func(i, j int) bool {
		return r.Archives[i].Name < r.Archives[j].Name
	})

	merged, failed, skipped := 0, 0, 0
	for _, a := range r.Archives {
		switch a.Status {
		case StatusMerged:
			merged++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	r.Summary.Merged = merged
	r.Summary.Failed = failed
	r.Summary.Skipped = skipped

	if r.Summary.BytesOut > 0 {
		r.Summary.SizeHuman = humanize.IBytes(uint64(r.Summary.BytesOut))
	} else {
		r.Summary.SizeHuman = ""
	}
}

// Ok 表示本次运行整体成功（产物已落盘且无致命错误）。
func (r RunReport) Ok() bool {
	return r.ErrorCode == "" && r.Summary.Failed == 0
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
