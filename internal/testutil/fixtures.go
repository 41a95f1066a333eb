package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/system/normalize"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user. A non-empty password is hashed at
// bcrypt.MinCost to keep tests fast.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role, password string, linked ...primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:             primitive.NewObjectID(),
		FullName:       name,
		FullNameCI:     text.Fold(name),
		Email:          normalize.Email(email),
		Role:           role,
		Status:         models.StatusActive,
		LinkedMachines: linked,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			f.t.Fatalf("hash password: %v", err)
		}
		u.PasswordHash = string(hash)
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreatePharmacy creates a pharmacy user.
func (f *Fixtures) CreatePharmacy(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RolePharmacy, "")
}

// CreateMarketing creates a marketing user linked to pharmacies.
func (f *Fixtures) CreateMarketing(ctx context.Context, name, email string, pharmacies ...primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleMarketing, "", pharmacies...)
}

// CreateCompany creates a company user linked to marketing users.
func (f *Fixtures) CreateCompany(ctx context.Context, name, email string, marketers ...primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleCompany, "", marketers...)
}

// DisableUser flips a user's status to disabled.
func (f *Fixtures) DisableUser(ctx context.Context, id primitive.ObjectID) {
	f.t.Helper()
	_, err := f.db.Collection("users").UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": models.StatusDisabled}})
	if err != nil {
		f.t.Fatalf("failed to disable user: %v", err)
	}
}

// AddUsage sets the count for a pharmacy on a date.
func (f *Fixtures) AddUsage(ctx context.Context, pharmacyID primitive.ObjectID, date string, count int64) {
	f.t.Helper()
	_, err := f.db.Collection("daily_usage").UpdateOne(ctx,
		bson.M{"pharmacy_id": pharmacyID, "date": date},
		bson.M{"$set": bson.M{"count": count, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		f.t.Fatalf("failed to add usage: %v", err)
	}
}
