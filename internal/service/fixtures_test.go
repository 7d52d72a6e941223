package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/captionfoundry/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:caption-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Silent)
	require.NoError(t, err, "failed to open test db")

	t.Cleanup(func() {
		_ = db.Close(gdb)
	})
	return gdb
}

type fixture struct {
	gdb     *gorm.DB
	dataset db.Dataset
	set     db.CaptionSet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := setupServiceTestDB(t)
	f := &fixture{gdb: gdb}
	f.dataset = db.Dataset{Name: "Portraits", Slug: "portraits"}
	require.NoError(t, gdb.Create(&f.dataset).Error)
	f.set = db.CaptionSet{DatasetID: f.dataset.ID, Name: "natural v1", Style: "natural"}
	require.NoError(t, gdb.Create(&f.set).Error)
	return f
}

// addFile 登记文件并把它加入数据集。
func (f *fixture) addFile(t *testing.T, filename string) db.TrackedFile {
	t.Helper()

	file := db.TrackedFile{Filename: filename, RelativePath: filename, AbsolutePath: "/data/" + filename, Exists: true}
	require.NoError(t, f.gdb.Create(&file).Error)
	link := db.DatasetFile{DatasetID: f.dataset.ID, FileID: file.ID}
	require.NoError(t, f.gdb.Create(&link).Error)
	return file
}

// addCaption 直接写入说明文字，不产生版本。
func (f *fixture) addCaption(t *testing.T, text string) db.Caption {
	t.Helper()

	file := f.addFile(t, fmt.Sprintf("img-%d.png", time.Now().UnixNano()))
	caption := db.Caption{CaptionSetID: f.set.ID, FileID: file.ID, Text: text, Source: db.SourceManual}
	require.NoError(t, f.gdb.Create(&caption).Error)
	return caption
}

func (f *fixture) reloadCaption(t *testing.T, id string) db.Caption {
	t.Helper()

	var caption db.Caption
	require.NoError(t, f.gdb.First(&caption, "id = ?", id).Error)
	return caption
}

func (f *fixture) versions(t *testing.T, captionID string) []db.CaptionVersion {
	t.Helper()

	var versions []db.CaptionVersion
	require.NoError(t, f.gdb.Where("caption_id = ?", captionID).Order("version_number asc").Find(&versions).Error)
	return versions
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }
