package run

import (
	"time"

	"github.com/John-Robertt/tkmerge/internal/config"
	"github.com/John-Robertt/tkmerge/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 执行是单线程的，但实现仍不应假设调用间隔（压缩阶段可能长时间无事件）。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（discover/plan/count/package，用于阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnArchiveDone 在某个压缩包处理完成（合并或失败）时调用。
	OnArchiveDone(idx, total int, ref domain.ArchiveRef, res domain.ArchiveResult, dur time.Duration)
	// OnWarning 用于非致命告警（目前只有日期回退一种）。
	OnWarning(msg string)
}
