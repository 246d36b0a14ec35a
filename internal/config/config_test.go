package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Label != "Takeout" || eff.Prefix != "takeout" {
		t.Fatalf("默认值不正确：%+v", eff)
	}
	if eff.XZLevel != 9 || eff.XZThreads != 0 {
		t.Fatalf("压缩默认值不正确：%+v", eff)
	}
	if eff.StrictDate || eff.KeepWorkdir {
		t.Fatalf("开关默认应为 false：%+v", eff)
	}
	if !filepath.IsAbs(eff.Dir) {
		t.Fatalf("Dir 必须是绝对路径：%q", eff.Dir)
	}
}

func TestLoadEffective_FileOverridesDefaults(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, `
label: MyExport
prefix: Backup
strict_date: true
keep_workdir: true
compression:
  level: 6
  threads: 4
`)

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Label != "MyExport" {
		t.Fatalf("期望 label=MyExport，实际 %q", eff.Label)
	}
	if eff.Prefix != "backup" {
		t.Fatalf("prefix 应被小写规范化：%q", eff.Prefix)
	}
	if !eff.StrictDate || !eff.KeepWorkdir {
		t.Fatalf("开关未生效：%+v", eff)
	}
	if eff.XZLevel != 6 || eff.XZThreads != 4 {
		t.Fatalf("压缩配置未生效：%+v", eff)
	}
}

func TestLoadEffective_CLIWinsOverFile(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, "label: FromFile\n")

	eff, err := LoadEffective(cwd, CLIArgs{Label: "FromCLI", LabelSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Label != "FromCLI" {
		t.Fatalf("CLI 必须覆盖配置文件：%q", eff.Label)
	}
}

func TestLoadEffective_DirRelativeToCwd(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, "dir: exports\n")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := filepath.Join(cwd, "exports")
	if eff.Dir != want {
		t.Fatalf("期望 dir=%q，实际 %q", want, eff.Dir)
	}
}

func TestLoadEffective_InvalidLabel(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{Label: "a/b", LabelSet: true})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 config_invalid，实际 err=%v", err)
	}
}

func TestLoadEffective_InvalidLevel(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, "compression:\n  level: 11\n")

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 config_invalid，实际 err=%v", err)
	}
}

func TestLoadEffective_BrokenYAML(t *testing.T) {
	cwd := t.TempDir()
	writeConfig(t, cwd, "label: [unclosed\n")

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 config_invalid，实际 err=%v", err)
	}
}

func writeConfig(t *testing.T, cwd, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cwd, FileName), []byte(body), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
}
