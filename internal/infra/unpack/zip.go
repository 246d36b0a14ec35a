package unpack

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/John-Robertt/tkmerge/internal/domain"
)

// ZipExtractor 解包 zip 容器（Google Takeout 默认的导出格式）。
type ZipExtractor struct{}

func (ZipExtractor) Kind() domain.ArchiveKind { return domain.KindZip }

func (ZipExtractor) Extract(ctx context.Context, srcPath, dstDir string) error {
	r, err := zip.OpenReader(srcPath)
	if err != nil {
		return fmt.Errorf("打开 zip 失败：%w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		// zip 条目可能很多：每个条目前检查一次取消即可（足够及时，开销可忽略）。
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := secureJoin(dstDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := writeZipEntry(f, target); err != nil {
			return fmt.Errorf("解包 %q 失败：%w", f.Name, err)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	w, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if !f.Modified.IsZero() {
		_ = os.Chtimes(target, f.Modified, f.Modified)
	}
	return nil
}
