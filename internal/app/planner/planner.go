package planner

import (
	"fmt"
	"time"

	"github.com/John-Robertt/tkmerge/internal/domain"
	"github.com/John-Robertt/tkmerge/internal/stamp"
)

// DateError 表示 strict_date=true 时首个文件名解析不出日期。
type DateError struct {
	Base string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("无法从首个压缩包名 %q 解析出日期（strict_date=true，不回退当天日期）", e.Base)
}

// BuildPlan 由发现结果、label 与时钟生成确定性的执行计划（纯函数，不做任何 IO）。
//
// 日期只看排序后的首个压缩包：排序建立了确定的“第一个”，其余文件名不参与推导。
// 回退路径（文件名不可解析且非 strict）使用 now 的当天日期，并在计划里标记
// DateSource=fallback，由上层决定如何提示用户。
func BuildPlan(label string, strictDate bool, archives []domain.ArchiveRef, now time.Time) (domain.RunPlan, error) {
	if len(archives) == 0 {
		return domain.RunPlan{}, fmt.Errorf("archives 不能为空（发现阶段应已兜底）")
	}

	first := archives[0]
	date, ok := stamp.FromBase(first.Base())
	source := domain.DateSourceFilename
	if !ok {
		if strictDate {
			return domain.RunPlan{}, &DateError{Base: first.Base()}
		}
		date = stamp.Today(now)
		source = domain.DateSourceFallback
	}

	return domain.RunPlan{
		Archives:   archives,
		Date:       date,
		DateSource: source,
		OutputName: stamp.OutputID(label, date) + ".tar.xz",
	}, nil
}
