package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/pharmausage/internal/app/system/normalize"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "pharmacy"|"marketing"|"company"`)
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
	errPharmacyLinks  = errors.New("pharmacy users cannot have linked_machines")
	// ErrInvalidLink is returned when a linked ID is not a user of the role
	// the owner links to.
	ErrInvalidLink = errors.New("linked id is not a user of the expected role")
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID. Returns ErrNotFound if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email. Returns ErrNotFound if absent.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListByRole returns every user with role, ordered by _id so callers see
// a stable source order. The password hash is not loaded.
func (s *Store) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})

	cur, err := s.c.Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new user after normalizing and validating fields.
// A non-empty password is stored as a bcrypt hash.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	u.Status = normalize.Status(u.Status)
	if u.Status == "" {
		u.Status = models.StatusActive
	}

	if !models.IsKnownRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.Status != models.StatusActive && u.Status != models.StatusDisabled {
		return models.User{}, errBadStatus
	}
	if u.Role == models.RolePharmacy && len(u.LinkedMachines) > 0 {
		return models.User{}, errPharmacyLinks
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = string(hash)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// SetPassword replaces a user's password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": string(hash),
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkedRole is the role of the users a user of role links to: marketing
// links pharmacies, company links marketing users. Other roles link nothing.
func LinkedRole(role string) string {
	switch role {
	case models.RoleMarketing:
		return models.RolePharmacy
	case models.RoleCompany:
		return models.RoleMarketing
	}
	return ""
}

// Link appends linked entity IDs to a marketing or company user, skipping
// IDs already present. Every ID must be an existing user of the owner's
// LinkedRole, otherwise nothing is written and ErrInvalidLink is returned.
func (s *Store) Link(ctx context.Context, id primitive.ObjectID, linked ...primitive.ObjectID) error {
	if len(linked) == 0 {
		return nil
	}
	owner, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	want := LinkedRole(owner.Role)
	if want == "" {
		return ErrNotFound
	}

	seen := make(map[primitive.ObjectID]struct{}, len(linked))
	uniq := make([]primitive.ObjectID, 0, len(linked))
	for _, l := range linked {
		if _, dup := seen[l]; !dup {
			seen[l] = struct{}{}
			uniq = append(uniq, l)
		}
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": uniq}, "role": want})
	if err != nil {
		return err
	}
	if n != int64(len(uniq)) {
		return fmt.Errorf("%w: %s user links %s ids only", ErrInvalidLink, owner.Role, want)
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": owner.Role},
		bson.M{
			"$addToSet": bson.M{"linked_machines": bson.M{"$each": uniq}},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CheckPassword reports whether password matches u's stored hash.
func CheckPassword(u *models.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
