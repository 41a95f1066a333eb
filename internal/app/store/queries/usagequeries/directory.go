package usagequeries

import (
	"context"
	"errors"

	usagestore "github.com/dalemusser/pharmausage/internal/app/store/usage"
	userstore "github.com/dalemusser/pharmausage/internal/app/store/users"
	"github.com/dalemusser/pharmausage/internal/app/system/usage"
	"github.com/dalemusser/pharmausage/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned by a Directory when a user document is absent.
var ErrNotFound = errors.New("document not found")

// Directory is the read surface the assemblers need from the document store.
type Directory interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]models.User, error)
	ListUsage(ctx context.Context, pharmacyID primitive.ObjectID) ([]usage.Record, error)
}

// MongoDirectory serves a Directory from the users and daily_usage collections.
type MongoDirectory struct {
	users *userstore.Store
	usage *usagestore.Store
}

// NewMongoDirectory builds a Directory over db.
func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{
		users: userstore.New(db),
		usage: usagestore.New(db),
	}
}

func (d *MongoDirectory) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := d.users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (d *MongoDirectory) ListUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	return d.users.ListByRole(ctx, role)
}

func (d *MongoDirectory) ListUsage(ctx context.Context, pharmacyID primitive.ObjectID) ([]usage.Record, error) {
	rows, err := d.usage.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	return usagestore.Records(rows), nil
}
