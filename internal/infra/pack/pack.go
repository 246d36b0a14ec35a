package pack

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/tkmerge/internal/infra/fsx"
)

// MissingToolError 表示必需的外部工具不存在（启动期致命错误）。
// 上层把它映射为 error_code=missing_dependency。
type MissingToolError struct {
	Tool string
	Hint string
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("缺少必需的外部工具 %q：%s", e.Tool, e.Hint)
}

func IsMissingTool(err error) bool {
	var e *MissingToolError
	return errors.As(err, &e)
}

// TarXz 把目录树打包为 .tar.xz：tar 流在进程内生成，xz 压缩交给外部 xz 进程。
//
// 约束：
// - 压缩是整个系统里唯一的并行点（xz -T 多线程），对流水线而言是一次阻塞调用
// - 产物先写同目录的临时文件，成功后原子 rename；失败时删掉临时文件，
//   最终输出路径上永远不会出现半成品
type TarXz struct {
	// XZPath 是 xz 可执行文件的绝对路径（构造时解析好，执行阶段不再查 PATH）。
	XZPath string
	// Level 是压缩档位 0-9。
	Level int
	// Threads=0 表示 -T0（用满所有 CPU）。
	Threads int
}

// NewTarXz 构造打包器，并在启动期完成 xz 的存在性检查。
func NewTarXz(level, threads int) (*TarXz, error) {
	path, err := exec.LookPath("xz")
	if err != nil {
		return nil, &MissingToolError{
			Tool: "xz",
			Hint: "请先安装 xz（Debian/Ubuntu：apt install xz-utils；macOS：brew install xz）",
		}
	}
	return &TarXz{XZPath: path, Level: level, Threads: threads}, nil
}

// Package 把 srcDir 的整棵目录树打包为 outPath，返回产物字节数。
func (p *TarXz) Package(ctx context.Context, srcDir, outPath string) (int64, error) {
	outDir := filepath.Dir(outPath)
	outBase := filepath.Base(outPath)

	// 临时文件与目标同目录，保证 rename 的原子性（前缀带 '.'，避免污染目录视图）。
	tmp, err := os.CreateTemp(outDir, "."+outBase+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.XZPath,
		fmt.Sprintf("-%d", p.Level),
		fmt.Sprintf("-T%d", p.Threads),
		"-c",
	)
	cmd.Stdout = tmp
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, err
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("启动 xz 失败：%w", err)
	}

	tarErr := WriteTar(srcDir, stdin)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	if tarErr != nil {
		return 0, fmt.Errorf("生成 tar 流失败：%w", tarErr)
	}
	if closeErr != nil {
		return 0, closeErr
	}
	if waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return 0, fmt.Errorf("xz 失败：%v（%s）", waitErr, msg)
		}
		return 0, fmt.Errorf("xz 失败：%w", waitErr)
	}

	if err := tmp.Sync(); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}

	if err := fsx.Rename(tmpName, outPath); err != nil {
		return 0, err
	}
	committed = true
	_ = fsx.SyncDirBestEffort(outDir)

	fi, err := os.Stat(outPath)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// WriteTar 把 srcDir 的目录树写成 tar 流（不含压缩）。
//
// - 条目顺序由 WalkDir 的字典序保证（确定性输出）
// - 路径一律用相对 srcDir 的 slash 形式；根目录自身不写条目
// - 只写目录与普通文件（输入来自解包与叠加复制，不含特殊类型）
func WriteTar(srcDir string, w io.Writer) error {
	srcDir = filepath.Clean(srcDir)
	tw := tar.NewWriter(w)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			return tw.WriteHeader(&tar.Header{
				Name:     name + "/",
				Typeflag: tar.TypeDir,
				Mode:     int64(info.Mode().Perm()),
				ModTime:  info.ModTime(),
			})
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     int64(info.Mode().Perm()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		}); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}
	return tw.Close()
}
