package pack

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteTar_DeterministicAndComplete(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "b.txt"), "B")
	write(t, filepath.Join(src, "a", "1.txt"), "one")
	write(t, filepath.Join(src, "a", "2.txt"), "two")

	var buf bytes.Buffer
	require.NoError(t, WriteTar(src, &buf))

	names := readTarNames(t, buf.Bytes())
	// WalkDir 字典序：目录条目先于其内容，文件按名字排序。
	require.Equal(t, []string{"a/", "a/1.txt", "a/2.txt", "b.txt"}, names)

	// 再写一遍必须得到同样的条目序列（确定性输出）。
	var buf2 bytes.Buffer
	require.NoError(t, WriteTar(src, &buf2))
	require.Equal(t, names, readTarNames(t, buf2.Bytes()))
}

func TestWriteTar_ContentRoundTrip(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "d", "f.txt"), "payload")

	var buf bytes.Buffer
	require.NoError(t, WriteTar(src, &buf))

	tr := tar.NewReader(bytes.NewReader(buf.Bytes()))
	found := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Name == "d/f.txt" {
			b, err := io.ReadAll(tr)
			require.NoError(t, err)
			require.Equal(t, "payload", string(b))
			found = true
		}
	}
	require.True(t, found, "tar 流里必须包含 d/f.txt")
}

func TestTarXz_Package_RoundTrip(t *testing.T) {
	requireXZ(t)

	src := t.TempDir()
	write(t, filepath.Join(src, "Mail", "inbox.mbox"), "mail")
	write(t, filepath.Join(src, "readme.txt"), "hi")

	outDir := t.TempDir()
	out := filepath.Join(outDir, "Takeout-2024-01-15.tar.xz")

	p, err := NewTarXz(6, 0)
	require.NoError(t, err)

	n, err := p.Package(context.Background(), src, out)
	require.NoError(t, err)

	fi, err := os.Stat(out)
	require.NoError(t, err)
	require.Equal(t, fi.Size(), n)

	// 解开产物验证内容无损（round-trip 性质）。
	xzd := exec.Command("xz", "-d", "-c", out)
	raw, err := xzd.Output()
	require.NoError(t, err)
	names := readTarNames(t, raw)
	require.Equal(t, []string{"Mail/", "Mail/inbox.mbox", "readme.txt"}, names)

	// 临时文件不应残留。
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), "."), "临时文件未清理：%s", e.Name())
	}
}

func TestTarXz_Package_FailureLeavesNoOutput(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "f.txt"), "x")

	outDir := t.TempDir()
	out := filepath.Join(outDir, "out.tar.xz")

	// 指向不存在的 xz：Package 必须失败，且最终路径与临时文件都不存在。
	p := &TarXz{XZPath: filepath.Join(outDir, "no-such-xz"), Level: 9, Threads: 0}
	_, err := p.Package(context.Background(), src, out)
	require.Error(t, err)

	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr), "失败时不允许留下最终产物路径")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries, "失败时临时文件必须被清掉")
}

func TestNewTarXz_MissingTool(t *testing.T) {
	// 清空 PATH 模拟 xz 不存在。
	t.Setenv("PATH", t.TempDir())

	_, err := NewTarXz(9, 0)
	require.Error(t, err)
	require.True(t, IsMissingTool(err))
	require.Contains(t, err.Error(), "xz", "错误信息必须带安装提示")
}

func requireXZ(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("xz"); err != nil {
		t.Skip("环境里没有 xz，跳过")
	}
}

func readTarNames(t *testing.T, raw []byte) []string {
	t.Helper()
	tr := tar.NewReader(bytes.NewReader(raw))
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	return names
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}
