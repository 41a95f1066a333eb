package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/pharmausage/internal/app/system/indexes"
	"github.com/dalemusser/pharmausage/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexDocs(t *testing.T, ctx context.Context, db *mongo.Database, coll string) map[string]bson.M {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	out := make(map[string]bson.M)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			out[name] = idx
		}
	}
	return out
}

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":           {"uniq_users_email", "idx_users_role_id"},
		"daily_usage":     {"uniq_usage_pharmacy_date"},
		"login_records":   {"idx_logins_user_created", "idx_logins_created"},
		"password_resets": {"idx_pwreset_expires_ttl", "idx_pwreset_user"},
		"audit_events": {
			"idx_audit_timestamp",
			"idx_audit_user_timestamp",
			"idx_audit_category_type_timestamp",
		},
	}

	for coll, names := range expected {
		got := indexDocs(t, ctx, db, coll)
		for _, name := range names {
			if _, ok := got[name]; !ok {
				t.Errorf("expected index %q to exist on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_PasswordResetTTL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	idx, ok := indexDocs(t, ctx, db, "password_resets")["idx_pwreset_expires_ttl"]
	if !ok {
		t.Fatal("TTL index missing")
	}
	if _, ok := idx["expireAfterSeconds"]; !ok {
		t.Errorf("idx_pwreset_expires_ttl has no expireAfterSeconds: %v", idx)
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys and options as uniq_users_email, different name.
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_1_legacy"),
	})
	if err != nil {
		t.Fatalf("seed index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	got := indexDocs(t, ctx, db, "users")
	if _, ok := got["email_1_legacy"]; ok {
		t.Error("legacy index should have been replaced")
	}
	if _, ok := got["uniq_users_email"]; !ok {
		t.Error("uniq_users_email should exist")
	}
}

func TestEnsureAll_RecreatesOnOptionMismatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Non-unique index on the keys that should be unique.
	_, err := db.Collection("daily_usage").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pharmacy_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetName("uniq_usage_pharmacy_date"),
	})
	if err != nil {
		t.Fatalf("seed index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	idx := indexDocs(t, ctx, db, "daily_usage")["uniq_usage_pharmacy_date"]
	if u, _ := idx["unique"].(bool); !u {
		t.Errorf("uniq_usage_pharmacy_date should be unique after reconcile: %v", idx)
	}
}

func TestEnsureAll_UniqueFailsOnDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := db.Collection("users")
	for i := 0; i < 2; i++ {
		if _, err := users.InsertOne(ctx, bson.M{"email": "dup@example.com", "role": "pharmacy"}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	if err := indexes.EnsureAll(ctx, db); err == nil {
		t.Fatal("expected EnsureAll to report duplicate emails")
	}
}
