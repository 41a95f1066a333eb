// Package passwordreset stores single-use password reset tokens.
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultExpiry is how long a reset token is valid.
	DefaultExpiry = time.Hour
	// BcryptCost for hashing token secrets.
	BcryptCost = 10
)

var (
	// ErrNotFound is returned when a token is unknown, expired, already used or malformed.
	ErrNotFound = errors.New("reset token not found or expired")
)

// Reset is a pending password reset. The secret half of the token is
// only ever stored as a bcrypt hash.
type Reset struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     primitive.ObjectID `bson:"user_id"`
	Email      string             `bson:"email"`
	SecretHash string             `bson:"secret_hash"`
	ExpiresAt  time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt  time.Time          `bson:"created_at"`
}

// Store manages password reset records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	now    func() time.Time
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection("password_resets"),
		expiry: expiry,
		now:    time.Now,
	}
}

// Expiry returns how long issued tokens stay valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Create issues a token for the user, replacing any outstanding one.
// The returned token has the form "<record id>.<secret>".
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}

	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return "", fmt.Errorf("clear previous resets: %w", err)
	}

	now := s.now().UTC()
	r := Reset{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		Email:      email,
		SecretHash: string(hash),
		ExpiresAt:  now.Add(s.expiry),
		CreatedAt:  now,
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return "", fmt.Errorf("insert reset: %w", err)
	}
	return r.ID.Hex() + "." + secret, nil
}

// Verify checks a token against its stored hash and expiry without
// using it up. Call Delete once the reset has been applied.
func (s *Store) Verify(ctx context.Context, token string) (*Reset, error) {
	idPart, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return nil, ErrNotFound
	}
	id, err := primitive.ObjectIDFromHex(idPart)
	if err != nil {
		return nil, ErrNotFound
	}

	var r Reset
	err = s.c.FindOne(ctx, bson.M{
		"_id":        id,
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(r.SecretHash), []byte(secret)); err != nil {
		return nil, ErrNotFound
	}
	return &r, nil
}

// Delete removes a reset so its token cannot be used again. ErrNotFound
// means another request already removed it.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
