package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/John-Robertt/tkmerge/internal/domain"
)

var fixedNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestBuildPlan_DateFromFirstArchive(t *testing.T) {
	archives := []domain.ArchiveRef{
		{Name: "takeout-20240115-001.zip", Kind: domain.KindZip},
		{Name: "takeout-20240116-002.zip", Kind: domain.KindZip},
	}

	p, err := BuildPlan("Takeout", false, archives, fixedNow)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 只看首个：第二个包的 0116 不参与推导。
	if p.Date != "2024-01-15" || p.DateSource != domain.DateSourceFilename {
		t.Fatalf("日期推导不正确：%+v", p)
	}
	if p.OutputName != "Takeout-2024-01-15.tar.xz" {
		t.Fatalf("期望 Takeout-2024-01-15.tar.xz，实际 %q", p.OutputName)
	}
	if len(p.Archives) != 2 || p.Archives[0].Name != "takeout-20240115-001.zip" {
		t.Fatalf("archives 顺序必须原样保留：%+v", p.Archives)
	}
}

func TestBuildPlan_DashedDate(t *testing.T) {
	archives := []domain.ArchiveRef{{Name: "takeout-2024-01-15-001.zip", Kind: domain.KindZip}}

	p, err := BuildPlan("Takeout", false, archives, fixedNow)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if p.Date != "2024-01-15" {
		t.Fatalf("期望 2024-01-15，实际 %q", p.Date)
	}
}

func TestBuildPlan_FallbackToToday(t *testing.T) {
	archives := []domain.ArchiveRef{{Name: "takeout-nodate.zip", Kind: domain.KindZip}}

	p, err := BuildPlan("MyLabel", false, archives, fixedNow)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if p.Date != "2026-08-30" || p.DateSource != domain.DateSourceFallback {
		t.Fatalf("回退路径不正确：%+v", p)
	}
	if p.OutputName != "MyLabel-2026-08-30.tar.xz" {
		t.Fatalf("期望 MyLabel-2026-08-30.tar.xz，实际 %q", p.OutputName)
	}
}

func TestBuildPlan_StrictDateFails(t *testing.T) {
	archives := []domain.ArchiveRef{{Name: "takeout-nodate.zip", Kind: domain.KindZip}}

	_, err := BuildPlan("Takeout", true, archives, fixedNow)
	var de *DateError
	if !errors.As(err, &de) {
		t.Fatalf("期望 DateError，实际 err=%v", err)
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	archives := []domain.ArchiveRef{{Name: "takeout-20240115-001.zip", Kind: domain.KindZip}}

	p1, err1 := BuildPlan("Takeout", false, archives, fixedNow)
	p2, err2 := BuildPlan("Takeout", false, archives, fixedNow.Add(48*time.Hour))
	if err1 != nil || err2 != nil {
		t.Fatalf("不期望错误：%v %v", err1, err2)
	}
	// 文件名可解析时，时钟不参与结果。
	if p1.Date != p2.Date || p1.OutputName != p2.OutputName {
		t.Fatalf("同输入必须同输出：%+v vs %+v", p1, p2)
	}
}
