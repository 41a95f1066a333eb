package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/dalemusser/pharmausage/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ensureEmailIndex(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
}

func TestStore_Create_Normalizes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "  Acme   Pharmacy ",
		Email:    "  OWNER@Acme.COM ",
		Role:     "Pharmacy",
	}, "s3cret!")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Acme Pharmacy" {
		t.Errorf("FullName = %q", created.FullName)
	}
	if want := text.Fold("Acme Pharmacy"); created.FullNameCI != want || want == "" {
		t.Errorf("FullNameCI = %q, want %q", created.FullNameCI, want)
	}
	if created.Email != "owner@acme.com" {
		t.Errorf("Email = %q", created.Email)
	}
	if created.Role != models.RolePharmacy {
		t.Errorf("Role = %q", created.Role)
	}
	if created.Status != models.StatusActive {
		t.Errorf("Status = %q, want active", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if !userstore.CheckPassword(&created, "s3cret!") {
		t.Error("expected password to verify")
	}
	if userstore.CheckPassword(&created, "wrong") {
		t.Error("wrong password verified")
	}
}

func TestStore_Create_RejectsBadInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cases := []struct {
		name string
		user models.User
	}{
		{"unknown role", models.User{Email: "a@x.com", Role: "admin"}},
		{"bad status", models.User{Email: "b@x.com", Role: models.RoleCompany, Status: "pending"}},
		{"pharmacy with links", models.User{Email: "c@x.com", Role: models.RolePharmacy, LinkedMachines: []primitive.ObjectID{primitive.NewObjectID()}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tc.user, ""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ensureEmailIndex(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Email: "dup@x.com", Role: models.RoleCompany}, ""); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := store.Create(ctx, models.User{Email: "DUP@x.com", Role: models.RoleCompany}, "")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByEmailAndID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreatePharmacy(ctx, "Corner Pharmacy", "corner@x.com")

	got, err := store.GetByEmail(ctx, "Corner@X.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("GetByEmail returned %s, want %s", got.ID.Hex(), p.ID.Hex())
	}

	got, err = store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullName != "Corner Pharmacy" {
		t.Errorf("FullName = %q", got.FullName)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("GetByID missing: err = %v", err)
	}
	if _, err := store.GetByEmail(ctx, "nobody@x.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("GetByEmail missing: err = %v", err)
	}
}

func TestStore_ListByRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreatePharmacy(ctx, "A", "a@x.com")
	b := fx.CreatePharmacy(ctx, "B", "b@x.com")
	fx.CreateMarketing(ctx, "M", "m@x.com", a.ID)

	got, err := store.ListByRole(ctx, models.RolePharmacy)
	if err != nil {
		t.Fatalf("ListByRole: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("ListByRole = %+v", got)
	}
}

func TestStore_SetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Co", "co@x.com", models.RoleCompany, "old")
	if err := store.SetPassword(ctx, u.ID, "new-pass"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !userstore.CheckPassword(got, "new-pass") || userstore.CheckPassword(got, "old") {
		t.Error("password not replaced")
	}

	if err := store.SetPassword(ctx, primitive.NewObjectID(), "x"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user: err = %v", err)
	}
}

func TestStore_Link(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p1 := fx.CreatePharmacy(ctx, "P1", "p1@x.com")
	p2 := fx.CreatePharmacy(ctx, "P2", "p2@x.com")
	m := fx.CreateMarketing(ctx, "M", "m@x.com", p1.ID)

	if err := store.Link(ctx, m.ID, p1.ID, p2.ID); err != nil {
		t.Fatalf("Link: %v", err)
	}
	got, _ := store.GetByID(ctx, m.ID)
	if len(got.LinkedMachines) != 2 || got.LinkedMachines[0] != p1.ID || got.LinkedMachines[1] != p2.ID {
		t.Errorf("LinkedMachines = %v", got.LinkedMachines)
	}

	if err := store.Link(ctx, p1.ID, p2.ID); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("linking onto a pharmacy: err = %v, want ErrNotFound", err)
	}
	if err := store.Link(ctx, primitive.NewObjectID(), p2.ID); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("linking onto a missing user: err = %v, want ErrNotFound", err)
	}
}

func TestStore_Link_ValidatesLinkedRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreatePharmacy(ctx, "P", "p@x.com")
	m := fx.CreateMarketing(ctx, "M", "m@x.com")
	c := fx.CreateCompany(ctx, "C", "c@x.com")

	tests := []struct {
		name    string
		owner   primitive.ObjectID
		linked  []primitive.ObjectID
		wantErr error
	}{
		{"company links marketing", c.ID, []primitive.ObjectID{m.ID, m.ID}, nil},
		{"company rejects pharmacy", c.ID, []primitive.ObjectID{p.ID}, userstore.ErrInvalidLink},
		{"marketing links pharmacy", m.ID, []primitive.ObjectID{p.ID}, nil},
		{"marketing rejects marketing", m.ID, []primitive.ObjectID{m.ID}, userstore.ErrInvalidLink},
		{"marketing rejects unknown id", m.ID, []primitive.ObjectID{p.ID, primitive.NewObjectID()}, userstore.ErrInvalidLink},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Link(ctx, tc.owner, tc.linked...)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Link: err = %v, want %v", err, tc.wantErr)
			}
		})
	}

	got, _ := store.GetByID(ctx, c.ID)
	if len(got.LinkedMachines) != 1 || got.LinkedMachines[0] != m.ID {
		t.Errorf("company LinkedMachines = %v, want [%s]", got.LinkedMachines, m.ID.Hex())
	}
	got, _ = store.GetByID(ctx, m.ID)
	if len(got.LinkedMachines) != 1 || got.LinkedMachines[0] != p.ID {
		t.Errorf("marketing LinkedMachines = %v, want [%s]", got.LinkedMachines, p.ID.Hex())
	}
}

func TestLinkedRole(t *testing.T) {
	if got := userstore.LinkedRole(models.RoleCompany); got != models.RoleMarketing {
		t.Errorf("company links %q", got)
	}
	if got := userstore.LinkedRole(models.RoleMarketing); got != models.RolePharmacy {
		t.Errorf("marketing links %q", got)
	}
	if got := userstore.LinkedRole(models.RolePharmacy); got != "" {
		t.Errorf("pharmacy links %q", got)
	}
}

func TestFetcher_UserDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	f := userstore.NewFetcher(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreatePharmacy(ctx, "P", "p@x.com")
	m := fx.CreateMarketing(ctx, "M", "m@x.com", p.ID)

	got, err := f.UserDocument(ctx, m.ID.Hex())
	if err != nil {
		t.Fatalf("UserDocument: %v", err)
	}
	if got == nil || got.Role != models.RoleMarketing || len(got.LinkedMachines) != 1 {
		t.Fatalf("UserDocument = %+v", got)
	}
	if got.PasswordHash != "" {
		t.Error("password hash should not be projected")
	}

	for _, id := range []string{"not-hex", primitive.NewObjectID().Hex()} {
		got, err := f.UserDocument(ctx, id)
		if err != nil || got != nil {
			t.Errorf("UserDocument(%q) = %v, %v; want nil, nil", id, got, err)
		}
	}
}
