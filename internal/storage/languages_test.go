package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/memobox/internal/domain"
)

func TestLanguageLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	fr := testLanguage(t, db, "fr", "French")
	testLanguage(t, db, "de", "German")
	assert.NotZero(t, fr.ID)
	assert.True(t, fr.CreatedAt.Equal(testNow))

	got, err := db.GetLanguage(ctx, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, "French", got.Name)

	byCode, err := db.FindLanguageByCode(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, "German", byCode.Name)

	langs, err := db.ListLanguages(ctx)
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, "French", langs[0].Name)
	assert.Equal(t, "German", langs[1].Name)

	fr.Name = "Français"
	require.NoError(t, db.UpdateLanguage(ctx, fr, testNow.Add(time.Minute)))
	got, err = db.GetLanguage(ctx, fr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Français", got.Name)
	assert.True(t, got.UpdatedAt.Equal(testNow.Add(time.Minute)))

	require.NoError(t, db.DeleteLanguage(ctx, fr.ID))
	_, err = db.GetLanguage(ctx, fr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteLanguage(ctx, fr.ID), ErrNotFound)
	_, err = db.FindLanguageByCode(ctx, "fr")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLanguageCodeIsUnique(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	testLanguage(t, db, "es", "Spanish")
	it := testLanguage(t, db, "it", "Italian")

	err := db.InsertLanguage(ctx, &domain.Language{Code: "es", Name: "Castilian"}, testNow)
	assert.ErrorIs(t, err, ErrDuplicate)

	it.Code = "es"
	assert.ErrorIs(t, db.UpdateLanguage(ctx, it, testNow), ErrDuplicate)
	assert.ErrorIs(t, db.UpdateLanguage(ctx, &domain.Language{ID: 999, Code: "xx", Name: "x"}, testNow), ErrNotFound)
}
