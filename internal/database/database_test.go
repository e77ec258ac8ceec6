package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/go-while/go-widgets/internal/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "widgets.sq3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Shutdown() })
	return db
}

func TestWidgetLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	widgets, err := db.ListWidgets(ctx)
	require.NoError(t, err)
	require.Empty(t, widgets)

	require.NoError(t, db.InsertWidget(ctx, models.Widget{Name: "Zeta", Description: "last letter", Price: 2}))
	require.NoError(t, db.InsertWidget(ctx, models.Widget{Name: "Alpha", Description: "first letter", Price: 1.5}))

	widgets, err = db.ListWidgets(ctx)
	require.NoError(t, err)
	want := []models.Widget{
		{Name: "Zeta", Description: "last letter", Price: 2},
		{Name: "Alpha", Description: "first letter", Price: 1.5},
	}
	if diff := cmp.Diff(want, widgets); diff != "" {
		t.Fatalf("ListWidgets mismatch (-want +got):\n%s", diff)
	}

	w, err := db.GetWidget(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, "Alpha", w.Name)

	price := 3.25
	updated, err := db.UpdateWidget(ctx, "ALPHA", models.WidgetUpdate{Price: &price})
	require.NoError(t, err)
	require.Equal(t, models.Widget{Name: "Alpha", Description: "first letter", Price: 3.25}, *updated)

	desc := "still the first"
	updated, err = db.UpdateWidget(ctx, "Alpha", models.WidgetUpdate{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, 3.25, updated.Price)
	require.Equal(t, desc, updated.Description)

	require.NoError(t, db.DeleteWidget(ctx, "Alpha"))
	_, err = db.GetWidget(ctx, "Alpha")
	require.ErrorIs(t, err, ErrWidgetNotFound)
}

func TestInsertDuplicateIgnoresCase(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.InsertWidget(ctx, models.Widget{Name: "Sprocket", Description: "a sprocket", Price: 3}))
	err := db.InsertWidget(ctx, models.Widget{Name: "SPROCKET", Description: "another one", Price: 4})
	require.ErrorIs(t, err, ErrWidgetExists)
}

func TestInsertDuplicateFoldsUnicode(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.InsertWidget(ctx, models.Widget{Name: "Äpfel", Description: "first apple", Price: 3}))
	for _, name := range []string{"äpfel", "ÄPFEL", "A\u0308pfel"} {
		err := db.InsertWidget(ctx, models.Widget{Name: name, Description: "second apple", Price: 4})
		require.ErrorIs(t, err, ErrWidgetExists, "name %q", name)
	}

	w, err := db.GetWidget(ctx, "äpfel")
	require.NoError(t, err)
	require.Equal(t, "Äpfel", w.Name)

	price := 5.0
	updated, err := db.UpdateWidget(ctx, "äpfel", models.WidgetUpdate{Price: &price})
	require.NoError(t, err)
	require.Equal(t, models.Widget{Name: "Äpfel", Description: "first apple", Price: 5}, *updated)

	require.NoError(t, db.DeleteWidget(ctx, "äPFEL"))
	widgets, err := db.ListWidgets(ctx)
	require.NoError(t, err)
	require.Empty(t, widgets)
}

func TestOpenDatabaseRewritesAsciiNameKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "widgets.sq3")
	db, err := OpenDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.InsertWidget(ctx, models.Widget{Name: "Äpfel", Description: "first apple", Price: 3}))
	// key as filled by the name_key migration
	_, err = db.db.ExecContext(ctx, `UPDATE widgets SET name_key = lower(trim(name))`)
	require.NoError(t, err)
	require.NoError(t, db.Shutdown())

	db, err = OpenDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Shutdown() })

	w, err := db.GetWidget(ctx, "äpfel")
	require.NoError(t, err)
	require.Equal(t, "Äpfel", w.Name)
	require.ErrorIs(t, db.InsertWidget(ctx, models.Widget{Name: "äpfel", Description: "second apple", Price: 4}), ErrWidgetExists)
}

func TestPing(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Ping(context.Background()))
}

func TestMissingWidget(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.ErrorIs(t, db.DeleteWidget(ctx, "ghost"), ErrWidgetNotFound)
	price := 5.0
	_, err := db.UpdateWidget(ctx, "ghost", models.WidgetUpdate{Price: &price})
	require.ErrorIs(t, err, ErrWidgetNotFound)
}

func TestOpenDatabaseIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.sq3")
	first, err := OpenDatabase(path)
	require.NoError(t, err)

	_, err = OpenDatabase(path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Shutdown())

	// reopening after shutdown keeps the data and re-runs migrations as a no-op
	second, err := OpenDatabase(path)
	require.NoError(t, err)
	require.NoError(t, second.Shutdown())
}
