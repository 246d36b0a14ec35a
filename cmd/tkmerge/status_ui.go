package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/tkmerge/internal/app/run"
	"github.com/John-Robertt/tkmerge/internal/config"
	"github.com/John-Robertt/tkmerge/internal/domain"
)

var _ run.Observer = (*statusUI)(nil)

// statusUI 是交互终端下的状态行输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 分级着色（info/warn/error）；颜色由 lipgloss 根据终端能力自动降级
type statusUI struct {
	w io.Writer

	okStyle   lipgloss.Style
	warnStyle lipgloss.Style
	errStyle  lipgloss.Style
	dimStyle  lipgloss.Style
}

func newStatusUI(w io.Writer) *statusUI {
	return &statusUI{
		w:         w,
		okStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		warnStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		errStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dimStyle:  lipgloss.NewStyle().Faint(true),
	}
}

func (u *statusUI) OnStart(eff config.EffectiveConfig) {
	fmt.Fprintf(u.w, "[%s] tkmerge\n", time.Now().Format("15:04:05"))
	fmt.Fprintln(u.w, "配置（生效）:")
	fmt.Fprintf(u.w, "  dir: %s\n", eff.Dir)
	fmt.Fprintf(u.w, "  label: %s\n", eff.Label)
	fmt.Fprintf(u.w, "  prefix: %s\n", eff.Prefix)
	fmt.Fprintf(u.w, "  strict_date: %v\n", eff.StrictDate)
	fmt.Fprintf(u.w, "  xz: -%d -T%d\n", eff.XZLevel, eff.XZThreads)
	if eff.KeepWorkdir {
		fmt.Fprintln(u.w, "  keep_workdir: true")
	}
	fmt.Fprintln(u.w)
}

func (u *statusUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "discover":
		fmt.Fprintf(u.w, "发现: archives=%d (%s)\n",
			intField(fields, "archives"), formatShortDuration(dur),
		)
	case "plan":
		fmt.Fprintf(u.w, "计划: date=%s source=%s output=%s\n",
			strField(fields, "date"), strField(fields, "source"), strField(fields, "output"),
		)
	case "count":
		fmt.Fprintf(u.w, "合并树: files=%d (%s)\n",
			intField(fields, "files"), formatShortDuration(dur),
		)
	case "package":
		fmt.Fprintf(u.w, "打包: %s bytes=%d (%s)\n",
			strField(fields, "output"), int64Field(fields, "bytes"), formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(u.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (u *statusUI) OnArchiveDone(idx, total int, ref domain.ArchiveRef, res domain.ArchiveResult, dur time.Duration) {
	switch res.Status {
	case domain.StatusFailed:
		fmt.Fprintf(u.w, "[%d/%d] %s %s %s: %s (%s)\n",
			idx, total, ref.Name, u.errStyle.Render("FAIL"),
			res.ErrorCode, res.ErrorMsg, formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(u.w, "[%d/%d] %s %s files=%d %s (%s)\n",
			idx, total, ref.Name, u.okStyle.Render("OK"),
			res.Files, u.dimStyle.Render(string(ref.Kind)), formatShortDuration(dur),
		)
	}
}

func (u *statusUI) OnWarning(msg string) {
	fmt.Fprintf(u.w, "%s %s\n", u.warnStyle.Render("警告:"), msg)
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

func int64Field(fields map[string]any, key string) int64 {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int64:
		return x
	case int:
		return int64(x)
	default:
		return 0
	}
}

func strField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}
