package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/tkmerge/internal/app/run"
	"github.com/John-Robertt/tkmerge/internal/config"
	"github.com/John-Robertt/tkmerge/internal/domain"
	"github.com/John-Robertt/tkmerge/internal/infra/pack"
	"github.com/John-Robertt/tkmerge/internal/infra/unpack"
)

func main() {
	os.Exit(mainCmd(os.Args[1:]))
}

func mainCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printUsage()
			return 0
		}
	}

	ca, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, ca)
	if err != nil {
		emitReport(reportForStartupError(cwd, ca, config.Code(err), err.Error()))
		return 1
	}

	// xz 是硬依赖：启动即检查，缺失时不做任何工作。
	pk, err := pack.NewTarXz(eff.XZLevel, eff.XZThreads)
	if err != nil {
		emitReport(reportForStartupError(eff.Dir, ca, domain.ErrCodeMissingDependency, err.Error()))
		return 1
	}

	reg, err := unpack.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 extractor registry 失败：%v\n", err)
		return 1
	}

	statusW, interactive := pickStatusWriter()
	var obs run.Observer
	if interactive {
		obs = newStatusUI(statusW)
	}

	rr := run.Execute(context.Background(), eff, run.Deps{
		Extractors: reg,
		Merger:     run.OverlayMerger{},
		Packager:   pk,
	}, obs)

	emitReport(rr)
	if rr.Ok() {
		return 0
	}
	return 1
}

func parseArgs(args []string) (config.CLIArgs, error) {
	ca := config.CLIArgs{}
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		if ca.LabelSet {
			return config.CLIArgs{}, fmt.Errorf("重复的 label：%q 与 %q", ca.Label, a)
		}
		ca.Label = a
		ca.LabelSet = true
	}
	return ca, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  tkmerge [label]

说明：
  在当前目录发现 Google Takeout 分卷压缩包（takeout*<日期>*.zip / .tgz / .tar.gz），
  按文件名顺序解包叠加合并（同路径后者覆盖前者），
  打包为 <label>-<YYYY-MM-DD>.tar.xz（日期取自首个压缩包文件名）。

参数：
  label       输出文件名的前缀（默认 Takeout；可在 tkmerge.yaml 中配置）
  -h, --help  显示帮助

依赖：
  需要系统安装 xz（Debian/Ubuntu: apt install xz-utils；macOS: brew install xz）。
`)
}

// emitReport 遵守输出契约：stdout 非 TTY 时 stdout 只输出一个 RunReport JSON，
// 人类可读的摘要一律走 stderr；stdout 是 TTY 时直接打印摘要。
func emitReport(rr domain.RunReport) {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		printSummary(os.Stdout, rr)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	printSummary(os.Stderr, rr)
}

func printSummary(w io.Writer, rr domain.RunReport) {
	if rr.ErrorCode != "" {
		fmt.Fprintf(w, "失败：%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		return
	}

	fmt.Fprintf(w, "完成：merged=%d files=%d date=%s (%s)\n",
		rr.Summary.Merged, rr.Summary.Files, rr.Date, rr.DateSource,
	)
	fmt.Fprintf(w, "产物：%s (%s)\n", rr.Output, humanize.IBytes(uint64(rr.Summary.BytesOut)))
	fmt.Fprintf(w, "解包：tar -xJf %s\n", rr.Output)
}

// reportForStartupError 为“还没进入流水线就失败”的情况合成一份结构一致的报告
//（配置错误、xz 缺失），保证 stdout JSON 契约在任何失败路径上都成立。
func reportForStartupError(dir string, ca config.CLIArgs, code, msg string) domain.RunReport {
	now := time.Now().UTC()
	label := config.DefaultLabel
	if ca.LabelSet {
		label = ca.Label
	}
	rr := domain.RunReport{
		Dir:        dir,
		Label:      label,
		StartedAt:  now,
		FinishedAt: now,
		ErrorCode:  code,
		ErrorMsg:   msg,
		Archives:   []domain.ArchiveResult{},
	}
	rr.Finalize()
	return rr
}

func pickStatusWriter() (io.Writer, bool) {
	// 过程输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return os.Stderr, true
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return os.Stdout, true
	}
	return nil, false
}
