package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是可选配置文件的固定名字（位于工作目录下）。
	FileName = "tkmerge.yaml"

	// DefaultLabel 是输出基础名的最终默认值（CLI 与配置文件都未指定时）。
	DefaultLabel = "Takeout"
	// DefaultPrefix 是输入压缩包文件名的前缀 token。
	DefaultPrefix = "takeout"
	// DefaultXZLevel 是 xz 的压缩档位（最大压缩比）。
	DefaultXZLevel = 9
)

// CLIArgs 只包含 CLI 暴露的入口（一个可选的 label 位置参数），
// 并保留“是否显式指定”的信息，保证覆盖优先级可实现。
type CLIArgs struct {
	Label    string
	LabelSet bool
}

// FileConfig 对应 tkmerge.yaml 的解析结构。
type FileConfig struct {
	Label       string             `yaml:"label"`
	Dir         string             `yaml:"dir"`
	Prefix      string             `yaml:"prefix"`
	StrictDate  bool               `yaml:"strict_date"`
	KeepWorkdir bool               `yaml:"keep_workdir"`
	Compression *CompressionConfig `yaml:"compression"`
}

type CompressionConfig struct {
	Level   *int `yaml:"level"`
	Threads *int `yaml:"threads"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
//（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Dir 是输入压缩包所在的工作目录（绝对路径）；产物也落在这里。
	Dir string

	Label  string
	Prefix string

	// StrictDate=true：首个文件名解析不出日期时直接失败，而不是回退当天日期。
	StrictDate bool
	// KeepWorkdir=true：运行结束后保留临时工作目录（排障用）。
	KeepWorkdir bool

	// XZLevel 是 xz 档位 0-9；XZThreads=0 表示用满所有 CPU（-T0）。
	XZLevel   int
	XZThreads int
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 <cwd>/tkmerge.yaml（可选），再与 CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：
// - label：CLI 位置参数 > config > 默认 "Takeout"
// - 其他字段：仅由 config 控制（CLI 不暴露 flag）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

// labelRE 是 label 的最小约束：只允许能安全出现在文件名里的字符（避免路径穿越）。
var labelRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// label：CLI > config > 默认
	label := DefaultLabel
	if cli.LabelSet {
		label = cli.Label
	} else if strings.TrimSpace(fc.Label) != "" {
		label = strings.TrimSpace(fc.Label)
	}
	if !labelRE.MatchString(label) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath,
			Err: fmt.Errorf("label 只允许字母/数字/._-，实际是 %q", label)}
	}

	dir := cwdAbs
	if strings.TrimSpace(fc.Dir) != "" {
		dir = absCleanFrom(cwdAbs, fc.Dir)
	}

	prefix := DefaultPrefix
	if strings.TrimSpace(fc.Prefix) != "" {
		prefix = strings.ToLower(strings.TrimSpace(fc.Prefix))
	}

	level := DefaultXZLevel
	threads := 0
	if fc.Compression != nil {
		if fc.Compression.Level != nil {
			level = *fc.Compression.Level
			if level < 0 || level > 9 {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath,
					Err: fmt.Errorf("compression.level 必须在 [0,9]，实际是 %d", level)}
			}
		}
		if fc.Compression.Threads != nil {
			threads = *fc.Compression.Threads
			if threads < 0 {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath,
					Err: fmt.Errorf("compression.threads 不能为负，实际是 %d", threads)}
			}
		}
	}

	return EffectiveConfig{
		Dir:         dir,
		Label:       label,
		Prefix:      prefix,
		StrictDate:  fc.StrictDate,
		KeepWorkdir: fc.KeepWorkdir,
		XZLevel:     level,
		XZThreads:   threads,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return base
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
