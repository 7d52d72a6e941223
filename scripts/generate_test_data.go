package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/captionfoundry/internal/config"
	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/logger"
	"github.com/captionfoundry/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const demoDatasetSlug = "demo-portraits"

// demoFiles 中带 caption 的条目模拟已有配对 .txt 的图片
var demoFiles = []struct {
	filename string
	caption  string
}{
	{"portrait_001.png", "a woman with red hair, looking at the camera"},
	{"portrait_002.png", "a man wearing glasses,  smiling"},
	{"portrait_003.png", "close-up portrait, soft lighting, blurry background"},
	{"portrait_004.png", ""},
	{"portrait_005.png", "an old man with a beard. outdoors. natural light"},
}

type seedSummary struct {
	DatasetID    string
	CaptionSetID string
	Files        int
	Imported     int
}

// 测试数据生成器
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// 初始化数据库
	gdb, err := db.Open(cfg.Database.Path, db.ParseLogLevel(cfg.Database.LogLevel))
	if err != nil {
		zlog.Fatal("数据库初始化失败", zap.Error(err))
	}
	defer func() { _ = db.Close(gdb) }()

	fmt.Println("开始生成测试数据...")

	summary, err := seedDemoData(context.Background(), gdb, zlog)
	if err != nil {
		zlog.Fatal("生成测试数据失败", zap.Error(err))
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("数据集: %s (%d 个文件)\n", summary.DatasetID, summary.Files)
	fmt.Printf("说明文字集合: %s (导入 %d 条)\n", summary.CaptionSetID, summary.Imported)
}

// seedDemoData 创建演示数据集、文件和一个从配对文件导入的说明文字集合。
// 演示数据集已存在时直接返回，不重复创建。
func seedDemoData(ctx context.Context, gdb *gorm.DB, log *zap.Logger) (seedSummary, error) {
	var existing db.Dataset
	err := gdb.Where("slug = ?", demoDatasetSlug).First(&existing).Error
	if err == nil {
		fmt.Println("演示数据集已存在，跳过创建")
		return seedSummary{DatasetID: existing.ID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return seedSummary{}, err
	}

	dataset := db.Dataset{Name: "Demo Portraits", Slug: demoDatasetSlug}
	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dataset).Error; err != nil {
			return err
		}
		for i, item := range demoFiles {
			file := db.TrackedFile{
				Filename:     item.filename,
				RelativePath: "demo/" + item.filename,
				AbsolutePath: "/data/demo/" + item.filename,
				Exists:       true,
			}
			if item.caption != "" {
				caption := item.caption
				file.ImportedCaption = &caption
			}
			if err := tx.Create(&file).Error; err != nil {
				return err
			}
			link := db.DatasetFile{DatasetID: dataset.ID, FileID: file.ID, OrderIndex: i}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return seedSummary{}, err
	}
	fmt.Println("✅ 演示数据集创建完成")

	set, err := service.NewCaptionSetService(gdb, log).Create(ctx, dataset.ID, service.CaptionSetInput{Name: "imported"})
	if err != nil {
		return seedSummary{}, err
	}
	imported, err := service.NewCaptionService(gdb, log).ImportFromFiles(ctx, set.ID)
	if err != nil {
		return seedSummary{}, err
	}
	fmt.Println("✅ 说明文字导入完成")

	return seedSummary{
		DatasetID:    dataset.ID,
		CaptionSetID: set.ID,
		Files:        len(demoFiles),
		Imported:     imported,
	}, nil
}
