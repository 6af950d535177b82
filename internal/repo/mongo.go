package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Skotchmaster/gpio_shop/internal/models"
)

const productsCollection = "products"

type MongoRepo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func NewMongoRepo(client *mongo.Client, database string) *MongoRepo {
	return &MongoRepo{Client: client, DB: client.Database(database)}
}

// EnsureIndexes makes email unique inside each principal partition.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	for _, role := range []models.Role{models.RoleUser, models.RoleAdmin} {
		_, err := r.DB.Collection(role.Partition()).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *MongoRepo) CreatePrincipal(ctx context.Context, role models.Role, p *models.Principal) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := r.DB.Collection(role.Partition()).InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExist
		}
		return err
	}
	p.Role = role
	return nil
}

func (r *MongoRepo) FindPrincipalByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error) {
	var p models.Principal
	err := r.DB.Collection(role.Partition()).FindOne(ctx, bson.M{"email": email}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Role = role
	return &p, nil
}

func (r *MongoRepo) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := r.DB.Collection(productsCollection).InsertOne(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *MongoRepo) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	coll := r.DB.Collection(productsCollection)
	if patch.Empty() {
		return r.GetProduct(ctx, id)
	}

	var prod models.Product
	err := coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": patch.Fields()},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&prod)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prod, nil
}

func (r *MongoRepo) DeleteProduct(ctx context.Context, id string) error {
	_, err := r.DB.Collection(productsCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepo) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var prod models.Product
	err := r.DB.Collection(productsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&prod)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prod, nil
}

func (r *MongoRepo) ListProducts(ctx context.Context) ([]models.Product, error) {
	cur, err := r.DB.Collection(productsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := []models.Product{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx, nil)
}

func (r *MongoRepo) Close(ctx context.Context) error {
	return r.Client.Disconnect(ctx)
}
