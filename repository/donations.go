package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	config "github.com/athar/donation-tracker-go/config"
	models "github.com/athar/donation-tracker-go/models"
)

// DonationRepository is the Mongo-backed donation store.
type DonationRepository struct {
	col *mongo.Collection
}

func NewDonationRepository(cfg *config.Config) *DonationRepository {
	return &DonationRepository{col: cfg.Collection("donations")}
}

func (r *DonationRepository) Insert(ctx context.Context, d *models.Donation) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, d)
	return err
}

func (r *DonationRepository) Get(ctx context.Context, id string) (*models.Donation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var d models.Donation
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DonationRepository) List(ctx context.Context, status string) ([]models.Donation, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var donations []models.Donation
	if err := cursor.All(ctx, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

// CompleteReview is the compare-and-swap both review entry points go through:
// one FindOneAndUpdate whose filter requires status == pending, so of two
// racing reviewers exactly one matches. Returns (nil, nil) when nothing
// pending matched.
func (r *DonationRepository) CompleteReview(ctx context.Context, id, status, reviewer string, at time.Time) (*models.Donation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	update := bson.M{"$set": bson.M{
		"status":      status,
		"reviewed_by": reviewer,
		"reviewed_at": at,
		"updated_at":  at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d models.Donation
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid, "status": models.DonationPending}, update, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DonationRepository) SetTelegramMessage(ctx context.Context, id string, chatID, messageID int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"telegram_chat_id":    chatID,
		"telegram_message_id": messageID,
		"updated_at":          time.Now(),
	}})
	return err
}
