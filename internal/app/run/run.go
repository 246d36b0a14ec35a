package run

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/John-Robertt/tkmerge/internal/app"
	"github.com/John-Robertt/tkmerge/internal/app/planner"
	"github.com/John-Robertt/tkmerge/internal/config"
	"github.com/John-Robertt/tkmerge/internal/domain"
	"github.com/John-Robertt/tkmerge/internal/infra/fsx"
	"github.com/John-Robertt/tkmerge/internal/infra/unpack"
	"github.com/John-Robertt/tkmerge/internal/infra/workspace"
	"github.com/John-Robertt/tkmerge/internal/scan"
)

// TreeMerger 把一棵源目录树叠加复制到累积目录（同路径覆盖，last-write-wins）。
type TreeMerger interface {
	Merge(srcDir, dstDir string) error
}

// Packager 把合并完成的目录树打包为最终产物，返回产物字节数。
// 失败时最终输出路径上不允许留下任何文件（半成品必须清掉）。
type Packager interface {
	Package(ctx context.Context, srcDir, outPath string) (int64, error)
}

// OverlayMerger 是 TreeMerger 的生产实现（fsx 的叠加复制）。
type OverlayMerger struct{}

func (OverlayMerger) Merge(srcDir, dstDir string) error {
	return fsx.OverlayTree(srcDir, dstDir)
}

// Deps 聚合执行阶段用到的外部能力。
// 生产装配在 cmd 层完成；测试可以整体替换为假实现，核心流程不感知差别。
type Deps struct {
	Extractors unpack.Registry
	Merger     TreeMerger
	Packager   Packager

	// Now 可注入时钟（回退日期与报告时间戳）；nil 等价于 time.Now。
	Now func() time.Time
}

// Execute 执行一次完整的合并流水线，并返回对外稳定的 RunReport。
//
// 流水线严格串行：发现 → 计划 → 逐包（解包 → 选合并根 → 叠加 → 丢弃暂存）→
// 计数 → 打包 → 清理。任何致命错误立即中止（不产出产物、不重试），
// 工作目录的清理在中止路径上也会 best-effort 执行。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) domain.RunReport {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	started := now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Dir:       eff.Dir,
		Label:     eff.Label,
		StartedAt: started,
	}

	finish := func() domain.RunReport {
		rr.FinishedAt = now().UTC()
		rr.Finalize()
		return rr
	}
	fatal := func(code, msg string) domain.RunReport {
		rr.ErrorCode = code
		rr.ErrorMsg = msg
		return finish()
	}

	// 发现：没有输入直接失败，不创建任何工作状态。
	discoverStarted := time.Now()
	archives, err := scan.DiscoverArchives(eff.Dir, eff.Prefix)
	if err != nil {
		if scan.IsNoInput(err) {
			return fatal(domain.ErrCodeNoInputFound, err.Error())
		}
		return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("扫描输入失败：%v", err))
	}
	if obs != nil {
		obs.OnPhaseDone("discover", map[string]any{
			"archives": len(archives),
		}, time.Since(discoverStarted))
	}

	// 计划：纯函数，失败只可能来自 strict_date。
	plan, err := planner.BuildPlan(eff.Label, eff.StrictDate, archives, now())
	if err != nil {
		return fatal(domain.ErrCodeDateUnparsed, err.Error())
	}
	rr.Date = plan.Date
	rr.DateSource = plan.DateSource
	if plan.DateSource == domain.DateSourceFallback && obs != nil {
		obs.OnWarning(fmt.Sprintf("首个压缩包名 %q 解析不出日期，回退使用当天日期 %s", archives[0].Name, plan.Date))
	}
	if obs != nil {
		obs.OnPhaseDone("plan", map[string]any{
			"date":   plan.Date,
			"source": plan.DateSource,
			"output": plan.OutputName,
		}, 0)
	}

	ws, err := workspace.New(eff.Dir)
	if err != nil {
		return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("创建工作目录失败：%v", err))
	}
	cleanup := func() {
		if eff.KeepWorkdir {
			return
		}
		// 清理失败不改变运行结果；残留目录下次运行会被重建覆盖。
		_ = ws.RemoveAll()
	}

	// 逐包合并：顺序即 last-write-wins 的语义，绝不并行。
	rr.Archives = make([]domain.ArchiveResult, len(plan.Archives))
	for i, ref := range plan.Archives {
		rr.Archives[i] = domain.ArchiveResult{Name: ref.Name, Kind: ref.Kind, Status: domain.StatusSkipped}
	}

	for i, ref := range plan.Archives {
		oneStarted := time.Now()
		res := &rr.Archives[i]

		x, ok := deps.Extractors.Get(ref.Kind)
		if !ok {
			// 发现阶段只放行已识别格式，走到这里说明装配缺了 extractor。
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeExtractionFailed
			res.ErrorMsg = fmt.Sprintf("没有 %q 对应的 extractor", ref.Kind)
			cleanup()
			return fatal(domain.ErrCodeExtractionFailed, res.ErrorMsg)
		}

		scratch, err := ws.Scratch(i)
		if err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = err.Error()
			cleanup()
			return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("创建解包暂存失败：%v", err))
		}

		if err := x.Extract(ctx, ref.AbsPath, scratch); err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeExtractionFailed
			res.ErrorMsg = err.Error()
			if obs != nil {
				obs.OnArchiveDone(i+1, len(plan.Archives), ref, *res, time.Since(oneStarted))
			}
			cleanup()
			return fatal(domain.ErrCodeExtractionFailed, fmt.Sprintf("解包 %s 失败：%v", ref.Name, err))
		}

		root, err := app.PickMergeRoot(scratch)
		if err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = err.Error()
			cleanup()
			return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("读取解包结果失败：%v", err))
		}

		n, err := fsx.CountRegularFiles(root)
		if err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = err.Error()
			cleanup()
			return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("统计解包文件失败：%v", err))
		}
		res.Files = n

		if err := deps.Merger.Merge(root, ws.MergeDir()); err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = err.Error()
			cleanup()
			return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("合并 %s 失败：%v", ref.Name, err))
		}

		// 暂存有界：处理完立即丢弃，再开始下一个包。
		if err := ws.DiscardScratch(scratch); err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = err.Error()
			cleanup()
			return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("清理解包暂存失败：%v", err))
		}

		res.Status = domain.StatusMerged
		if obs != nil {
			obs.OnArchiveDone(i+1, len(plan.Archives), ref, *res, time.Since(oneStarted))
		}
	}

	countStarted := time.Now()
	files, err := fsx.CountRegularFiles(ws.MergeDir())
	if err != nil {
		cleanup()
		return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("统计合并结果失败：%v", err))
	}
	rr.Summary.Files = files
	if obs != nil {
		obs.OnPhaseDone("count", map[string]any{"files": files}, time.Since(countStarted))
	}

	packStarted := time.Now()
	outPath := filepath.Join(eff.Dir, plan.OutputName)
	bytesOut, err := deps.Packager.Package(ctx, ws.MergeDir(), outPath)
	if err != nil {
		cleanup()
		return fatal(domain.ErrCodePackagingFailed, fmt.Sprintf("打包失败：%v", err))
	}
	rr.Output = outPath
	rr.Summary.BytesOut = bytesOut
	if obs != nil {
		obs.OnPhaseDone("package", map[string]any{
			"bytes":  bytesOut,
			"output": outPath,
		}, time.Since(packStarted))
	}

	cleanup()
	return finish()
}
