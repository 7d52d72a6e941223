package service

import (
	"context"
	"testing"

	"github.com/captionfoundry/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptionServiceUpsertCreatesWithoutVersion(t *testing.T) {
	f := newFixture(t)
	file := f.addFile(t, "a.png")
	svc := NewCaptionService(f.gdb, nil)

	caption, err := svc.Upsert(context.Background(), f.set.ID, CaptionInput{FileID: file.ID, Text: "a cat"})
	require.NoError(t, err)

	assert.Equal(t, "a cat", caption.Text)
	assert.Equal(t, db.SourceManual, caption.Source)
	assert.Empty(t, f.versions(t, caption.ID))

	var set db.CaptionSet
	require.NoError(t, f.gdb.First(&set, "id = ?", f.set.ID).Error)
	assert.Equal(t, 1, set.CaptionCount)
}

func TestCaptionServiceUpsertSnapshotsPreviousState(t *testing.T) {
	f := newFixture(t)
	file := f.addFile(t, "a.png")
	svc := NewCaptionService(f.gdb, nil)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: file.ID, Text: "a cat", VisionModel: strPtr("llava")})
	require.NoError(t, err)

	second, err := svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: file.ID, Text: "a black cat", Source: db.SourceGenerated})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a black cat", second.Text)
	assert.Equal(t, db.SourceGenerated, second.Source)
	// 未提供的字段保持原值
	require.NotNil(t, second.VisionModel)
	assert.Equal(t, "llava", *second.VisionModel)

	versions := f.versions(t, first.ID)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, "a cat", versions[0].Text)
	assert.Equal(t, db.AutoGenerateOperation(db.SourceGenerated), versions[0].Operation)
	assert.Equal(t, "Updated caption from manual to generated", versions[0].OperationDescription)
	require.NotNil(t, versions[0].Source)
	assert.Equal(t, db.SourceManual, *versions[0].Source)

	var set db.CaptionSet
	require.NoError(t, f.gdb.First(&set, "id = ?", f.set.ID).Error)
	assert.Equal(t, 1, set.CaptionCount)
}

func TestCaptionServiceVersionNumbersAreGapFree(t *testing.T) {
	f := newFixture(t)
	file := f.addFile(t, "a.png")
	svc := NewCaptionService(f.gdb, nil)
	ctx := context.Background()

	caption, err := svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: file.ID, Text: "v0"})
	require.NoError(t, err)
	for _, text := range []string{"v1", "v2", "v3"} {
		_, err := svc.UpdateText(ctx, caption.ID, text)
		require.NoError(t, err)
	}

	versions := f.versions(t, caption.ID)
	require.Len(t, versions, 3)
	for i, version := range versions {
		assert.Equal(t, i+1, version.VersionNumber)
		assert.Equal(t, db.OpManualEdit, version.Operation)
		assert.Equal(t, "Caption text updated", version.OperationDescription)
	}
	assert.Equal(t, []string{"v0", "v1", "v2"}, []string{versions[0].Text, versions[1].Text, versions[2].Text})

	history, err := svc.History(ctx, caption.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, history.TotalVersions)
	assert.Equal(t, 3, history.Versions[0].VersionNumber)
	assert.Equal(t, "v3", history.Caption.Text)
}

func TestCaptionServiceUpsertValidation(t *testing.T) {
	f := newFixture(t)
	file := f.addFile(t, "a.png")
	svc := NewCaptionService(f.gdb, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: file.ID, Text: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: file.ID, Text: "x", Source: "scraped"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: file.ID, Text: "x", QualityScore: floatPtr(1.5)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: "missing", Text: "x"})
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Upsert(ctx, "missing", CaptionInput{FileID: file.ID, Text: "x"})
	assert.ErrorIs(t, err, ErrCaptionSetNotFound)
}

func TestCaptionServiceUpsertPropagatesQuality(t *testing.T) {
	f := newFixture(t)
	file := f.addFile(t, "a.png")
	svc := NewCaptionService(f.gdb, nil)

	caption, err := svc.Upsert(context.Background(), f.set.ID, CaptionInput{
		FileID:       file.ID,
		Text:         "a cat",
		Source:       db.SourceGenerated,
		QualityScore: floatPtr(0.8),
		QualityFlags: []string{"blurry"},
	})
	require.NoError(t, err)

	flags, err := db.DecodeQualityFlags(caption.QualityFlags)
	require.NoError(t, err)
	assert.Equal(t, []string{"blurry"}, flags)

	var link db.DatasetFile
	require.NoError(t, f.gdb.First(&link, "file_id = ? AND dataset_id = ?", file.ID, f.dataset.ID).Error)
	require.NotNil(t, link.QualityScore)
	assert.InDelta(t, 0.8, *link.QualityScore, 1e-9)
	require.NotNil(t, link.QualityFlags)
	assert.Equal(t, `["blurry"]`, *link.QualityFlags)
}

func TestCaptionServiceGetByFile(t *testing.T) {
	f := newFixture(t)
	caption := f.addCaption(t, "a cat")
	other := f.addFile(t, "b.png")
	svc := NewCaptionService(f.gdb, nil)
	ctx := context.Background()

	found, err := svc.GetByFile(ctx, f.set.ID, caption.FileID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, caption.ID, found.ID)

	missing, err := svc.GetByFile(ctx, f.set.ID, other.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCaptionNotFound)
}

func TestCaptionServiceGetForFile(t *testing.T) {
	f := newFixture(t)
	caption := f.addCaption(t, "a cat")
	bare := f.addFile(t, "b.png")
	svc := NewCaptionService(f.gdb, nil)
	ctx := context.Background()

	view, err := svc.GetForFile(ctx, f.set.ID, caption.FileID)
	require.NoError(t, err)
	require.NotNil(t, view.Caption)
	assert.Equal(t, "a cat", view.Caption.Text)
	assert.Equal(t, f.set.Name, view.CaptionSetName)

	view, err = svc.GetForFile(ctx, f.set.ID, bare.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.png", view.Filename)
	assert.Nil(t, view.Caption)

	_, err = svc.GetForFile(ctx, f.set.ID, "missing")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestCaptionServiceListPages(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"one", "two", "three"} {
		f.addCaption(t, text)
	}
	svc := NewCaptionService(f.gdb, nil)
	ctx := context.Background()

	page1, err := svc.List(ctx, f.set.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := svc.List(ctx, f.set.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	_, err = svc.List(ctx, "missing", 1, 10)
	assert.ErrorIs(t, err, ErrCaptionSetNotFound)
}

func TestCaptionServiceBatchUpsertReportsPerItemErrors(t *testing.T) {
	f := newFixture(t)
	existing := f.addCaption(t, "old text")
	fresh := f.addFile(t, "b.png")
	svc := NewCaptionService(f.gdb, nil)

	result, err := svc.BatchUpsert(context.Background(), f.set.ID, []CaptionInput{
		{FileID: existing.FileID, Text: "new text"},
		{FileID: fresh.ID, Text: "fresh text"},
		{FileID: "missing", Text: "orphan"},
		{FileID: fresh.ID, Text: ""},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "missing", result.Errors[0].FileID)
	assert.Equal(t, fresh.ID, result.Errors[1].FileID)

	assert.Equal(t, "new text", f.reloadCaption(t, existing.ID).Text)
	assert.Len(t, f.versions(t, existing.ID), 1)

	var set db.CaptionSet
	require.NoError(t, f.gdb.First(&set, "id = ?", f.set.ID).Error)
	assert.Equal(t, 2, set.CaptionCount)
}

func TestCaptionServiceDeleteRemovesHistory(t *testing.T) {
	f := newFixture(t)
	file := f.addFile(t, "a.png")
	svc := NewCaptionService(f.gdb, nil)
	ctx := context.Background()

	caption, err := svc.Upsert(ctx, f.set.ID, CaptionInput{FileID: file.ID, Text: "a cat"})
	require.NoError(t, err)
	_, err = svc.UpdateText(ctx, caption.ID, "a dog")
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, caption.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, f.versions(t, caption.ID))

	var set db.CaptionSet
	require.NoError(t, f.gdb.First(&set, "id = ?", f.set.ID).Error)
	assert.Equal(t, 0, set.CaptionCount)

	deleted, err = svc.Delete(ctx, caption.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCaptionServiceImportFromFiles(t *testing.T) {
	f := newFixture(t)
	withText := f.addFile(t, "a.png")
	require.NoError(t, f.gdb.Model(&withText).Update("imported_caption", "imported cat").Error)
	f.addFile(t, "b.png")
	captioned := f.addCaption(t, "already set")
	require.NoError(t, f.gdb.Model(&db.TrackedFile{}).Where("id = ?", captioned.FileID).
		Update("imported_caption", "should not override").Error)
	svc := NewCaptionService(f.gdb, nil)

	imported, err := svc.ImportFromFiles(context.Background(), f.set.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	caption, err := svc.GetByFile(context.Background(), f.set.ID, withText.ID)
	require.NoError(t, err)
	require.NotNil(t, caption)
	assert.Equal(t, "imported cat", caption.Text)
	assert.Equal(t, db.SourceImported, caption.Source)
	assert.Equal(t, "already set", f.reloadCaption(t, captioned.ID).Text)
}
