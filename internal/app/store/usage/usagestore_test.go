package usagestore_test

import (
	"testing"

	usagestore "github.com/dalemusser/pharmausage/internal/app/store/usage"
	"github.com/dalemusser/pharmausage/internal/app/system/usage"
	"github.com/dalemusser/pharmausage/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_SetAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := usagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := primitive.NewObjectID()
	other := primitive.NewObjectID()

	for _, tc := range []struct {
		date  string
		count int64
	}{
		{"2025-05-06", 3},
		{"2025-05-01", 10},
		{"2024-12-25", 7},
	} {
		if err := store.Set(ctx, p, tc.date, tc.count); err != nil {
			t.Fatalf("Set(%s): %v", tc.date, err)
		}
	}
	if err := store.Set(ctx, other, "2025-05-06", 99); err != nil {
		t.Fatalf("Set other: %v", err)
	}
	// Overwrite keeps one document per day.
	if err := store.Set(ctx, p, "2025-05-06", 3); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	rows, err := store.ListByPharmacy(ctx, p)
	if err != nil {
		t.Fatalf("ListByPharmacy: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Date != "2024-12-25" || rows[2].Date != "2025-05-06" {
		t.Errorf("rows not sorted by date: %+v", rows)
	}

	got := usage.Summarize("2025-05-06", usagestore.Records(rows))
	want := usage.Summary{Daily: 3, Monthly: 13, Total: 20}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
}

func TestStore_Increment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := usagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		if err := store.Increment(ctx, p, "2025-01-01", 2); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	rows, err := store.ListByPharmacy(ctx, p)
	if err != nil {
		t.Fatalf("ListByPharmacy: %v", err)
	}
	if len(rows) != 1 || rows[0].Count != 6 {
		t.Errorf("rows = %+v, want one row with count 6", rows)
	}
}

func TestStore_RejectsNegative(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := usagestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Set(ctx, primitive.NewObjectID(), "2025-01-01", -1); err == nil {
		t.Error("expected error for negative count")
	}
	if err := store.Increment(ctx, primitive.NewObjectID(), "2025-01-01", -1); err == nil {
		t.Error("expected error for negative delta")
	}
}

func TestRecords(t *testing.T) {
	if got := usagestore.Records(nil); len(got) != 0 {
		t.Errorf("Records(nil) = %v", got)
	}
}
